package scraper

import (
	"fmt"
	"strconv"
	"unicode"
)

// ScrapeResult holds the fields extracted from one found product page. It
// lives only long enough to be flattened into a Row.
type ScrapeResult struct {
	Title            string
	Description      string
	Specs            map[string]string // lower-cased label -> value, first occurrence wins
	SpecsHTML        string            // rendered display table, duplicate labels included
	VideoLinks       []string
	Price            string // numeric string, "" when no price was located
	MainImage        string
	AdditionalImages []string
}

// Row is one flat output row, column name -> value. The column set varies per
// row; consumers must tolerate missing keys.
type Row map[string]string

// Fixed output columns. Spec labels are promoted to additional columns beside
// these, title-cased, without collision guarding.
const (
	ColModel       = "Mfr Model"
	ColVariant     = "Model Variant"
	ColTitle       = "Title"
	ColDescription = "Description"
	ColPrice       = "Price"
	ColMainImage   = "Main Image"
)

const (
	// OriginalVariantLabel marks the row scraped from the unsuffixed page.
	OriginalVariantLabel = "Original"
	// NoPricePlaceholder is written when no price could be extracted; the
	// Price column is never blank.
	NoPricePlaceholder = "Call for Price"

	maxRowImages = 5
	maxRowVideos = 5
)

// FlattenResult turns one page's extraction into a flat output row: the fixed
// columns, positional Additional Image / Video Link columns capped at five
// each, and one title-cased column per spec label.
func FlattenResult(model, suffix string, r *ScrapeResult) Row {
	variant := suffix
	if variant == "" {
		variant = OriginalVariantLabel
	}

	price := r.Price
	if price == "" {
		price = NoPricePlaceholder
	}

	combined := fmt.Sprintf(`<div style="text-align: justify;">%s</div>`, r.Description)
	if r.SpecsHTML != "" {
		combined += fmt.Sprintf(`<h3 style="margin-top: 15px;">Specifications</h3>%s`, r.SpecsHTML)
	}

	row := Row{
		ColModel:       model,
		ColVariant:     variant,
		ColTitle:       r.Title,
		ColDescription: combined,
		ColPrice:       price,
		ColMainImage:   r.MainImage,
	}

	for i, url := range r.AdditionalImages {
		if i >= maxRowImages {
			break
		}
		row["Additional Image "+strconv.Itoa(i+1)] = url
	}

	for i, link := range r.VideoLinks {
		if i >= maxRowVideos {
			break
		}
		row["Video Link "+strconv.Itoa(i+1)] = link
	}

	for label, value := range r.Specs {
		row[titleCase(label)] = value
	}

	return row
}

// titleCase uppercases the first letter of every run of letters and lowercases
// the rest, so "shipping weight" becomes "Shipping Weight" and "weight (lbs)"
// becomes "Weight (Lbs)". Existing sheets depend on this exact segmentation.
func titleCase(s string) string {
	out := []rune(s)
	prevLetter := false
	for i, r := range out {
		if unicode.IsLetter(r) {
			if prevLetter {
				out[i] = unicode.ToLower(r)
			} else {
				out[i] = unicode.ToUpper(r)
			}
			prevLetter = true
		} else {
			prevLetter = false
		}
	}
	return string(out)
}
