package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	specsTableOpen  = `<div style="overflow-x: auto;"><table class="specs-table" cellspacing="0" cellpadding="4" border="1" style="margin-top:10px;border-collapse:collapse;width:auto;" align="left"><tbody>`
	specsTableClose = `</tbody></table></div>`
)

// FilterDescriptionHTML keeps the narrative paragraphs of a product content
// container: paragraphs whose visible text starts with the free-shipping
// disclaimer marker or mentions a video are dropped, embedded images are
// stripped, and each survivor is run through the sanitizer. Survivors are
// concatenated in document order.
func FilterDescriptionHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var parts []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if text == "" {
			return
		}
		lower := strings.ToLower(text)
		if strings.HasPrefix(lower, "*free") || strings.Contains(lower, "video") {
			return
		}

		inner, err := p.Html()
		if err != nil {
			return
		}
		inner = CleanVendorHTML(StripImageTags(strings.TrimSpace(inner)))
		parts = append(parts, "<p>"+inner+"</p>")
	})

	return strings.Join(parts, "")
}

// ParseSpecsTable reads label/value pairs out of a raw specs table. Rows need
// at least two cells: the first cell's trimmed text is the label, the second
// cell's HTML the value. Labels containing "weight" get the padded weight
// transform applied to the cell's visible text instead of the verbatim value.
// It returns the lower-cased label map (first occurrence of a duplicate label
// wins) and a rendered display table that keeps every row, duplicates
// included.
func ParseSpecsTable(html string) (map[string]string, string) {
	specs := make(map[string]string)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return specs, ""
	}

	var b strings.Builder
	b.WriteString(specsTableOpen)

	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}

		label := strings.TrimSpace(cells.Eq(0).Text())
		valueCell := cells.Eq(1)

		cellHTML, err := valueCell.Html()
		if err != nil {
			cellHTML = ""
		}
		cellHTML = CleanVendorHTML(StripImageTags(cellHTML))

		value := strings.TrimSpace(valueCell.Text())
		if strings.Contains(strings.ToLower(label), "weight") {
			value = TransformWeight(value)
		}

		if label != "" {
			key := strings.ToLower(label)
			if _, seen := specs[key]; !seen {
				specs[key] = value
			}
		}

		fmt.Fprintf(&b, `<tr><td style="padding:3px 8px;"><b>%s</b></td><td style="padding:3px 8px;">%s</td></tr>`, label, cellHTML)
	})

	b.WriteString(specsTableClose)
	return specs, b.String()
}
