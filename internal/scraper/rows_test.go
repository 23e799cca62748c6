package scraper

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenResult(t *testing.T) {
	images := make([]string, 7)
	for i := range images {
		images[i] = fmt.Sprintf("https://cdn.example.com/img%d.jpg", i+1)
	}

	r := &ScrapeResult{
		Title:       "Alto-Shaam AQ-75 Fryer",
		Description: "<p>A fryer.</p>",
		Specs: map[string]string{
			"shipping weight": "48 lbs",
			"voltage":         "115v",
		},
		SpecsHTML:  "<table><tr><td>Voltage</td><td>115v</td></tr></table>",
		VideoLinks: []string{"https://cdn.example.com/v1.mp4"},
		Price:      "1299.00",
		MainImage:  "https://cdn.example.com/main.jpg",

		AdditionalImages: images,
	}

	row := FlattenResult("AQ-75", "LP", r)

	assert.Equal(t, "AQ-75", row[ColModel])
	assert.Equal(t, "LP", row[ColVariant])
	assert.Equal(t, "Alto-Shaam AQ-75 Fryer", row[ColTitle])
	assert.Equal(t, "1299.00", row[ColPrice])
	assert.Equal(t, "https://cdn.example.com/main.jpg", row[ColMainImage])

	// Description combines the cleaned body with the rendered specs table.
	assert.True(t, strings.HasPrefix(row[ColDescription], `<div style="text-align: justify;"><p>A fryer.</p></div>`))
	assert.Contains(t, row[ColDescription], "<h3")
	assert.Contains(t, row[ColDescription], "Specifications")
	assert.Contains(t, row[ColDescription], r.SpecsHTML)

	// Only five additional images survive.
	for i := 1; i <= 5; i++ {
		assert.Equal(t, fmt.Sprintf("https://cdn.example.com/img%d.jpg", i), row[fmt.Sprintf("Additional Image %d", i)])
	}
	_, ok := row["Additional Image 6"]
	assert.False(t, ok)

	assert.Equal(t, "https://cdn.example.com/v1.mp4", row["Video Link 1"])

	// Spec labels appear as title-cased columns.
	assert.Equal(t, "48 lbs", row["Shipping Weight"])
	assert.Equal(t, "115v", row["Voltage"])
}

func TestFlattenResultDefaults(t *testing.T) {
	row := FlattenResult("AQ-75", "", &ScrapeResult{Title: "AQ-75"})

	assert.Equal(t, OriginalVariantLabel, row[ColVariant])
	assert.Equal(t, NoPricePlaceholder, row[ColPrice])
	require.NotContains(t, row[ColDescription], "Specifications", "no specs table means no specs heading")
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "shipping weight", expected: "Shipping Weight"},
		{input: "weight (lbs)", expected: "Weight (Lbs)"},
		{input: "BTU rating", expected: "Btu Rating"},
		{input: "width", expected: "Width"},
		{input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, titleCase(tt.input))
		})
	}
}
