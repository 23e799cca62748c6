package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/cityfood/vendorflow/internal/browser"
)

const (
	defaultBaseURL = "https://www.katom.com"

	// One initial attempt plus two retries for transient failures.
	maxFetchAttempts = 3
	retryDelay       = 2 * time.Second

	titleWaitTimeout = 10 * time.Second
)

// Selector chains, tried in order until one yields a non-empty result. Markup
// is inconsistent across the site's product lines.
var (
	fallbackTitleSelectors = []string{"h1.product-title", "h1[itemprop='name']", "h1"}

	fallbackPriceSelectors = []string{".product-price", ".price", "[class*='price']"}

	thumbnailSelectors = []string{".additional-images img", ".product-thumbnails img", ".thumb-image"}

	fallbackMainImageSelectors = []string{".product-img img", ".main-product-image", "img.main-image"}
)

var (
	priceCentsPattern  = regexp.MustCompile(`\d[\d,]*\.\d{2}`)
	priceDigitsPattern = regexp.MustCompile(`\d[\d,]*`)
	decimalPattern     = regexp.MustCompile(`\d+\.\d{2}`)
)

// Extractor drives a single page fetch-and-parse attempt for one
// (model, suffix) pair. Each attempt runs in a fresh browser session that is
// always torn down before the attempt returns.
type Extractor struct {
	baseURL     string
	browserOpts *browser.Options
	qualifier   *ImageQualifier
	logger      *slog.Logger

	// attemptFn is swapped out in tests; production wiring points it at
	// (*Extractor).attempt.
	attemptFn func(ctx context.Context, url string) (*ScrapeResult, bool, error)
}

func NewExtractor(browserOpts *browser.Options, qualifier *ImageQualifier, logger *slog.Logger) *Extractor {
	e := &Extractor{
		baseURL:     defaultBaseURL,
		browserOpts: browserOpts,
		qualifier:   qualifier,
		logger:      logger.With("component", "page_extractor"),
	}
	e.attemptFn = e.attempt
	return e
}

// Fetch probes the catalog page for one (model, suffix) pair. The second
// return value reports whether the page exists and yielded a title; a page
// that does not exist is a definitive negative, not an error. Transient
// failures are retried with a short backoff, each retry in a fresh session;
// exhausted retries degrade to not-found.
func (e *Extractor) Fetch(ctx context.Context, model, prefix, suffix string) (*ScrapeResult, bool) {
	canonical := NormalizeModel(model)
	url := fmt.Sprintf("%s/%s-%s%s.html", e.baseURL, prefix, canonical, suffix)

	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		if attempt > 1 {
			e.logger.Warn("retrying page fetch", "url", url, "attempt", attempt)
			time.Sleep(retryDelay)
		}

		result, found, err := e.attemptFn(ctx, url)
		if err == nil {
			return result, found
		}
		e.logger.Error("page fetch attempt failed", "url", url, "attempt", attempt, "error", err)
	}

	e.logger.Error("giving up on page after retries", "url", url)
	return nil, false
}

// attempt loads the page once in its own session and extracts every field.
// Field-level extraction failures are soft: a missing price or image leaves
// the field at its zero value and never fails the page. Only navigation-level
// failures surface as errors (and trigger a retry in Fetch).
func (e *Extractor) attempt(ctx context.Context, url string) (result *ScrapeResult, found bool, err error) {
	session, err := browser.NewSession(e.browserOpts)
	if err != nil {
		return nil, false, fmt.Errorf("failed to start browser session: %w", err)
	}
	defer session.Close()

	page := session.Page()
	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(e.browserOpts.Timeout.Milliseconds())),
	}); err != nil {
		return nil, false, fmt.Errorf("failed to navigate: %w", err)
	}

	pageTitle, err := page.Title()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read page title: %w", err)
	}
	if strings.Contains(pageTitle, "404") || strings.Contains(strings.ToLower(pageTitle), "not found") {
		return nil, false, nil
	}

	title, ok := e.extractTitle(page)
	if !ok {
		return nil, false, nil
	}

	result = &ScrapeResult{
		Title: title,
		Specs: map[string]string{},
	}

	result.Price = e.extractPrice(page)
	e.extractImages(page, result)
	result.Description = e.extractDescription(page)
	e.extractSpecs(page, result)
	result.VideoLinks = e.extractVideoLinks(page)

	return result, true, nil
}

// extractTitle waits briefly for the primary heading, then falls through the
// generic heading chain. No non-empty title means the item does not exist.
func (e *Extractor) extractTitle(page playwright.Page) (string, bool) {
	primary := page.Locator("h1.product-name.mb-0").First()
	if err := primary.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(titleWaitTimeout.Milliseconds())),
	}); err == nil {
		if text, err := primary.TextContent(); err == nil {
			if title := strings.TrimSpace(text); title != "" {
				return title, true
			}
		}
	}

	for _, selector := range fallbackTitleSelectors {
		loc := page.Locator(selector).First()
		count, err := loc.Count()
		if err != nil || count == 0 {
			continue
		}
		if text, err := loc.TextContent(); err == nil {
			if title := strings.TrimSpace(text); title != "" {
				return title, true
			}
		}
	}
	return "", false
}

// ExtractNumericPrice pulls the first decimal-cents run out of a price blurb,
// falling back to a bare digit run, with thousands separators stripped.
// Returns "" when the text carries no number.
func ExtractNumericPrice(text string) string {
	if match := priceCentsPattern.FindString(text); match != "" {
		return strings.ReplaceAll(match, ",", "")
	}
	if match := priceDigitsPattern.FindString(text); match != "" {
		return strings.ReplaceAll(match, ",", "")
	}
	return ""
}

func (e *Extractor) extractPrice(page playwright.Page) string {
	for _, text := range e.allTextContents(page, "p.product-price-text.m-0") {
		if price := ExtractNumericPrice(strings.TrimSpace(text)); price != "" {
			return price
		}
	}

	for _, selector := range fallbackPriceSelectors {
		for _, text := range e.allTextContents(page, selector) {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			if !strings.Contains(text, "$") && !decimalPattern.MatchString(text) {
				continue
			}
			if price := ExtractNumericPrice(text); price != "" {
				return price
			}
		}
	}
	return ""
}

// extractImages reads the carousel first: its first image is the main image
// and the rest are additional candidates. Thumbnail-style selectors supplement
// the set, each candidate rewritten to its full-size URL, deduplicated and
// dimension-checked, capped at five. A missing main image falls back to the
// main-image chain, again gated by the qualifier.
func (e *Extractor) extractImages(page playwright.Page, result *ScrapeResult) {
	carousel := e.carouselImages(page)
	if len(carousel) > 0 {
		result.MainImage = carousel[0]
		result.AdditionalImages = append(result.AdditionalImages, carousel[1:]...)
	}

	for _, selector := range thumbnailSelectors {
		if len(result.AdditionalImages) >= maxRowImages {
			break
		}
		for _, src := range e.allAttributes(page, selector, "src") {
			if src == "" {
				continue
			}
			full := src
			if strings.Contains(strings.ToLower(src), "thumbnail") {
				full = strings.ReplaceAll(src, "thumbnail", "full")
			}
			if full == result.MainImage || containsString(result.AdditionalImages, full) {
				continue
			}
			if !e.qualifier.Qualifies(full) {
				continue
			}
			result.AdditionalImages = append(result.AdditionalImages, full)
			if len(result.AdditionalImages) >= maxRowImages {
				break
			}
		}
	}

	if result.MainImage == "" {
		for _, selector := range fallbackMainImageSelectors {
			for _, src := range e.allAttributes(page, selector, "src") {
				if src != "" && e.qualifier.Qualifies(src) {
					result.MainImage = src
					break
				}
			}
			if result.MainImage != "" {
				break
			}
		}
	}
}

func (e *Extractor) carouselImages(page playwright.Page) []string {
	var urls []string
	for _, src := range e.allAttributes(page, "div.product-image-container div.carousel-inner div.carousel-item img", "src") {
		if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") && !strings.HasPrefix(src, "//") {
			continue
		}
		if !containsString(urls, src) {
			urls = append(urls, src)
		}
	}
	return urls
}

func (e *Extractor) extractDescription(page playwright.Page) string {
	html := e.innerHTML(page, "div.product-custom-content")
	if html == "" {
		html = e.innerHTML(page, "div.tab-content")
	}
	if html == "" {
		return ""
	}
	return FilterDescriptionHTML(html)
}

func (e *Extractor) extractSpecs(page playwright.Page, result *ScrapeResult) {
	inner := e.innerHTML(page, "table.table.table-condensed.specs-table")
	if inner == "" {
		inner = e.innerHTML(page, "table")
	}
	if inner == "" {
		return
	}
	result.Specs, result.SpecsHTML = ParseSpecsTable("<table>" + inner + "</table>")
}

func (e *Extractor) extractVideoLinks(page playwright.Page) []string {
	var links []string
	for _, src := range e.allAttributes(page, "source[src*='.mp4'], source[type*='video']", "src") {
		if src != "" && !containsString(links, src) {
			links = append(links, src)
		}
	}
	return links
}

func (e *Extractor) allTextContents(page playwright.Page, selector string) []string {
	texts, err := page.Locator(selector).AllTextContents()
	if err != nil {
		return nil
	}
	return texts
}

func (e *Extractor) allAttributes(page playwright.Page, selector, attr string) []string {
	elements, err := page.Locator(selector).All()
	if err != nil {
		return nil
	}
	var values []string
	for _, el := range elements {
		value, err := el.GetAttribute(attr)
		if err != nil {
			continue
		}
		values = append(values, value)
	}
	return values
}

// innerHTML returns the first match's inner HTML, or "" when the selector
// matches nothing.
func (e *Extractor) innerHTML(page playwright.Page, selector string) string {
	loc := page.Locator(selector).First()
	count, err := loc.Count()
	if err != nil || count == 0 {
		return ""
	}
	html, err := loc.InnerHTML()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(html)
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
