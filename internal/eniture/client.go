package eniture

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// validFreightClasses are the NMFC classes the Eniture API accepts verbatim;
// anything else falls back to density-based rating.
var validFreightClasses = []float64{50, 55, 60, 65, 70, 77.5, 85, 92.5, 100, 110, 125, 150, 175, 200, 250, 300, 400, 500}

// Attributes is the shipping profile pushed for one product variant.
type Attributes struct {
	QuoteMethod  string `json:"quoteMethod"`
	Weight       int    `json:"weight"`
	FreightClass string `json:"freightClass"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Length       int    `json:"length"`
}

// BuildAttributes derives the Eniture shipping profile from raw vendor
// dimensions. Weights under 85 lbs quote as small parcel ("S"), everything
// else as LTL freight ("L"); zero-weight rows fall back to the freight class
// to decide. Dimensions are ceiled with a floor of 1.
func BuildAttributes(weight, length, width, height, freightClass float64) Attributes {
	quoteMethod := "L"
	if weight > 0 && weight < 85 {
		quoteMethod = "S"
	}
	if weight == 0 {
		if freightClass == 0 {
			quoteMethod = "S"
		} else {
			quoteMethod = "L"
		}
	}

	return Attributes{
		QuoteMethod:  quoteMethod,
		Weight:       atLeastOne(weight),
		FreightClass: FreightClassString(freightClass, quoteMethod),
		Width:        atLeastOne(width),
		Height:       atLeastOne(height),
		Length:       atLeastOne(length),
	}
}

// FreightClassString renders a freight class for the API: valid classes pass
// through (fractional ones keep their decimals), invalid ones become
// "DensityBased", and a missing class on an LTL quote defaults to 175.
func FreightClassString(freightClass float64, quoteMethod string) string {
	if freightClass == 0 && quoteMethod == "L" {
		return "175"
	}
	for _, valid := range validFreightClasses {
		if freightClass == valid {
			if freightClass == 77.5 || freightClass == 92.5 {
				return strconv.FormatFloat(freightClass, 'f', -1, 64)
			}
			return strconv.Itoa(int(freightClass))
		}
	}
	return "DensityBased"
}

func atLeastOne(v float64) int {
	n := int(math.Ceil(v))
	if n < 1 {
		return 1
	}
	return n
}

// Client pushes shipping attributes to the Eniture web API.
type Client struct {
	http       *resty.Client
	baseURL    string
	apiKey     string
	shopDomain string
	logger     *slog.Logger
}

func NewClient(baseURL, apiKey, shopDomain string, logger *slog.Logger) *Client {
	return &Client{
		http:       resty.New().SetTimeout(10 * time.Second),
		baseURL:    baseURL,
		apiKey:     apiKey,
		shopDomain: shopDomain,
		logger:     logger.With("component", "eniture"),
	}
}

// HTTPClient exposes the underlying transport, used by tests to install mocks.
func (c *Client) HTTPClient() *resty.Client {
	return c.http
}

type syncPayload struct {
	Data struct {
		ProductID  string     `json:"productId"`
		VariantID  string     `json:"variantId"`
		Attributes Attributes `json:"attributes"`
	} `json:"data"`
}

// SyncProduct pushes one variant's shipping attributes.
func (c *Client) SyncProduct(ctx context.Context, productID, variantID string, attrs Attributes) error {
	payload := syncPayload{}
	payload.Data.ProductID = productID
	payload.Data.VariantID = variantID
	payload.Data.Attributes = attrs

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetHeader("Accept", "application/json").
		SetHeader("X-Shopify-Shop", c.shopDomain).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.baseURL + "/api/products")
	if err != nil {
		return fmt.Errorf("failed to call eniture: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("eniture returned status %d", resp.StatusCode())
	}
	return nil
}
