package scraper

import "regexp"

// The sanitizer rewrites raw HTML fragments lifted from katom.com product
// pages before they are stored: the Prop 65 advisory link is swapped for our
// own, the free-shipping disclaimer is dropped, and any remaining links back
// into the source site are removed outright. These are plain text
// substitutions over markup, applied in this order, and each must be a no-op
// when its pattern is absent.
var (
	prop65Pattern = regexp.MustCompile(`(?i)<a\s+href="https://www\.katom\.com/learning-center/katom-california-proposition-65-advisories\.html"[^>]*>([^<]*)</a>`)

	freeShippingPattern = regexp.MustCompile(`(?i)\*[^*]+is free shipping eligible\. Users must be signed in with an order total greater than \$500 and be shipping to the 48 contiguous states\.`)

	vendorAnchorPattern = regexp.MustCompile(`(?is)<a\s+[^>]*href="[^"]*katom\.com[^"]*"[^>]*>.*?</a>`)

	imgTagPattern = regexp.MustCompile(`(?i)<img[^>]*>`)
)

const prop65Replacement = `<a href="https://www.cityfoodequipment.com/pages/city-food-equipment-california-proposition-65.html" title="City Food Equipment Prop 65 Info">Prop 65 information</a>`

// CleanVendorHTML applies the three vendor-link substitutions to an HTML
// fragment. Unrelated markup passes through untouched.
func CleanVendorHTML(html string) string {
	if html == "" {
		return html
	}
	html = prop65Pattern.ReplaceAllString(html, prop65Replacement)
	html = freeShippingPattern.ReplaceAllString(html, "")
	html = vendorAnchorPattern.ReplaceAllString(html, "")
	return html
}

// StripImageTags removes inline <img> elements from an HTML fragment.
func StripImageTags(html string) string {
	return imgTagPattern.ReplaceAllString(html, "")
}
