package eniture

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAttributes(t *testing.T) {
	tests := []struct {
		name               string
		weight             float64
		length             float64
		width              float64
		height             float64
		freightClass       float64
		wantMethod         string
		wantWeight         int
		wantFreightClass   string
	}{
		{
			name:   "light item is small parcel",
			weight: 42.3, length: 20, width: 18, height: 12,
			wantMethod: "S", wantWeight: 43, wantFreightClass: "DensityBased",
		},
		{
			name:   "heavy item is freight with default class",
			weight: 142.5, length: 32, width: 34.2, height: 47,
			wantMethod: "L", wantWeight: 143, wantFreightClass: "175",
		},
		{
			name:   "zero weight with class is freight",
			weight: 0, length: 10, width: 10, height: 10, freightClass: 92.5,
			wantMethod: "L", wantWeight: 1, wantFreightClass: "92.5",
		},
		{
			name:   "zero weight without class is parcel",
			weight: 0, length: 10, width: 10, height: 10,
			wantMethod: "S", wantWeight: 1, wantFreightClass: "DensityBased",
		},
		{
			name:   "exactly at the freight line",
			weight: 85, length: 1, width: 1, height: 1, freightClass: 175,
			wantMethod: "L", wantWeight: 85, wantFreightClass: "175",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := BuildAttributes(tt.weight, tt.length, tt.width, tt.height, tt.freightClass)
			assert.Equal(t, tt.wantMethod, attrs.QuoteMethod)
			assert.Equal(t, tt.wantWeight, attrs.Weight)
			assert.Equal(t, tt.wantFreightClass, attrs.FreightClass)
		})
	}
}

func TestBuildAttributesFloorsDimensions(t *testing.T) {
	attrs := BuildAttributes(10, 0, 0.4, 0, 0)
	assert.Equal(t, 1, attrs.Length)
	assert.Equal(t, 1, attrs.Width)
	assert.Equal(t, 1, attrs.Height)
}

func TestFreightClassString(t *testing.T) {
	tests := []struct {
		name     string
		class    float64
		method   string
		expected string
	}{
		{name: "missing class on freight defaults to 175", class: 0, method: "L", expected: "175"},
		{name: "missing class on parcel is density based", class: 0, method: "S", expected: "DensityBased"},
		{name: "whole class passes through", class: 250, method: "L", expected: "250"},
		{name: "fractional class keeps decimals", class: 77.5, method: "L", expected: "77.5"},
		{name: "unknown class is density based", class: 123, method: "L", expected: "DensityBased"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FreightClassString(tt.class, tt.method))
		})
	}
}

func TestSyncProduct(t *testing.T) {
	c := NewClient("https://s-web-api.eniture.com", "key123", "example.myshopify.com", slog.Default())
	httpmock.ActivateNonDefault(c.http.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	var captured syncPayload
	httpmock.RegisterResponder("POST", "https://s-web-api.eniture.com/api/products",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer key123", req.Header.Get("Authorization"))
			assert.Equal(t, "example.myshopify.com", req.Header.Get("X-Shopify-Shop"))
			body, _ := io.ReadAll(req.Body)
			require.NoError(t, json.Unmarshal(body, &captured))
			return httpmock.NewStringResponse(200, `{"status": "ok"}`), nil
		})

	attrs := BuildAttributes(142.5, 32, 34.2, 47, 0)
	err := c.SyncProduct(context.Background(), "111", "222", attrs)
	require.NoError(t, err)

	assert.Equal(t, "111", captured.Data.ProductID)
	assert.Equal(t, "222", captured.Data.VariantID)
	assert.Equal(t, "L", captured.Data.Attributes.QuoteMethod)
	assert.Equal(t, 143, captured.Data.Attributes.Weight)
}

func TestSyncProductBadStatus(t *testing.T) {
	c := NewClient("https://s-web-api.eniture.com", "key123", "example.myshopify.com", slog.Default())
	httpmock.ActivateNonDefault(c.http.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder("POST", "https://s-web-api.eniture.com/api/products",
		httpmock.NewStringResponder(401, "unauthorized"))

	err := c.SyncProduct(context.Background(), "111", "222", Attributes{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
