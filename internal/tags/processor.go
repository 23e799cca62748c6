package tags

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/cityfood/vendorflow/internal/jobs"
	"github.com/cityfood/vendorflow/internal/scraper"
	"github.com/cityfood/vendorflow/internal/shopify"
	"github.com/cityfood/vendorflow/internal/tabular"
)

// variantSuffixPattern matches one trailing variant suffix on a Shopify SKU,
// e.g. "AQ75-LP" or "MX200-2403". Suffixes are stripped repeatedly so stacked
// suffixes also reduce to the base model.
var variantSuffixPattern = regexp.MustCompile(`-(LP|NG|1151|1201|2081|2083|2201|2203|2301|2303|2401|2403|4403|4003)$`)

// skipHeaders are scraped columns that never become tags.
var skipHeaders = map[string]bool{
	"Additional Image 1": true,
	"Additional Image 2": true,
	"Additional Image 3": true,
	"Additional Image 4": true,
	"Additional Image 5": true,
	"Video Link 1":       true,
}

// Attribute columns of the scraped workbook occupy this 1-based column range;
// everything before it is fixed product data.
const (
	attributeColFirst = 12
	attributeColLast  = 97
)

// CleanSKU strips trailing variant suffixes from a SKU until none remain.
func CleanSKU(sku string) string {
	cleaned := sku
	for variantSuffixPattern.MatchString(cleaned) {
		cleaned = variantSuffixPattern.ReplaceAllString(cleaned, "")
	}
	return cleaned
}

// Summary reports the outcome of a tag processing or push run.
type Summary struct {
	Updated int      `json:"updated_rows"`
	Failed  int      `json:"failed_updates"`
	Skipped int      `json:"skipped_rows"`
	Total   int      `json:"total_rows"`
	Lookup  int      `json:"lookup_entries,omitempty"`
	Stopped bool     `json:"stopped"`
	Errors  []string `json:"errors,omitempty"`
}

const maxReportedErrors = 20

// Processor merges scraped attribute columns into Shopify product tags,
// either offline into an export CSV or directly against the Admin API.
type Processor struct {
	shopify *shopify.Client
	state   *jobs.State
	logger  *slog.Logger
}

func NewProcessor(shopifyClient *shopify.Client, state *jobs.State, logger *slog.Logger) *Processor {
	return &Processor{
		shopify: shopifyClient,
		state:   state,
		logger:  logger.With("component", "tag_processor"),
	}
}

// BuildLookup reads the scraped workbook's attribute column range and builds
// a model -> "Header: value, ..." tag string per row. The first column holds
// the manufacturer model.
func BuildLookup(wb *tabular.Table) map[string]string {
	lookup := make(map[string]string)

	for _, row := range wb.Rows {
		model := wb.Cell(row, 0)
		if model == "" {
			continue
		}

		var values []string
		for col := attributeColFirst - 1; col < attributeColLast && col < len(row); col++ {
			cell := strings.TrimSpace(row[col])
			if cell == "" {
				continue
			}
			header := ""
			if col < len(wb.Header) {
				header = strings.TrimSpace(wb.Header[col])
			}
			if header == "" {
				values = append(values, cell)
				continue
			}
			if skipHeaders[header] {
				continue
			}
			values = append(values, header+": "+cell)
		}
		lookup[model] = strings.Join(values, ", ")
	}

	return lookup
}

// ProcessTags builds the lookup from the scraped workbook and writes the tag
// strings into the Tags column of a Shopify export CSV, matched by cleaned
// Variant SKU.
func (p *Processor) ProcessTags(workbookPath, csvPath, outputPath string) (*Summary, error) {
	p.state.AddLog("Loading workbook...", "info")
	wb, err := tabular.ReadXLSX(workbookPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load workbook: %w", err)
	}

	p.state.AddLog("Building lookup table...", "info")
	lookup := BuildLookup(wb)
	p.state.AddLog(fmt.Sprintf("Lookup table: %d entries", len(lookup)), "info")

	p.state.AddLog("Loading Shopify CSV...", "info")
	export, err := tabular.ReadCSV(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load export csv: %w", err)
	}

	skuCol := export.ColumnIndex("Variant SKU")
	if skuCol == -1 {
		return nil, fmt.Errorf("export csv must have a Variant SKU column")
	}
	tagsCol := export.ColumnIndex("Tags")
	if tagsCol == -1 {
		export.Header = append(export.Header, "Tags")
		tagsCol = len(export.Header) - 1
	}

	summary := &Summary{Total: len(export.Rows), Lookup: len(lookup)}

	for i, row := range export.Rows {
		if p.state.Stopped() {
			summary.Stopped = true
			break
		}

		sku := export.Cell(row, skuCol)
		if sku == "" {
			continue
		}
		tags, ok := lookup[CleanSKU(sku)]
		if !ok {
			continue
		}

		// Grow ragged rows so the Tags column exists.
		for len(row) <= tagsCol {
			row = append(row, "")
		}
		row[tagsCol] = tags
		export.Rows[i] = row
		summary.Updated++

		if (i+1)%100 == 0 {
			percent := 40 + int(float64(i)/float64(summary.Total)*55)
			p.state.Progress(percent, fmt.Sprintf("Updated %d rows", summary.Updated))
		}
	}

	p.state.AddLog("Exporting to "+outputPath+"...", "info")
	if err := tabular.WriteCSV(outputPath, export); err != nil {
		return nil, fmt.Errorf("failed to write output csv: %w", err)
	}

	return summary, nil
}

// PushTags pushes tags from a scraped sheet straight to Shopify. The SKU is
// the manufacturer model, suffixed with the variant when it is not the
// original page; tag columns are everything past the fixed scrape columns,
// minus the skip list.
func (p *Processor) PushTags(ctx context.Context, sheet *tabular.Table) (*Summary, error) {
	modelCol := sheet.ColumnIndex(scraper.ColModel)
	if modelCol == -1 {
		return nil, fmt.Errorf("sheet must have a %s column", scraper.ColModel)
	}
	variantCol := sheet.ColumnIndex(scraper.ColVariant)

	var tagCols []int
	for col := 7; col < len(sheet.Header); col++ {
		if !skipHeaders[strings.TrimSpace(sheet.Header[col])] {
			tagCols = append(tagCols, col)
		}
	}

	summary := &Summary{Total: len(sheet.Rows)}

	for i, row := range sheet.Rows {
		if p.state.Stopped() {
			summary.Stopped = true
			break
		}

		model := sheet.Cell(row, modelCol)
		if model == "" {
			summary.Skipped++
			continue
		}

		sku := model
		variant := sheet.Cell(row, variantCol)
		if variant != "" && !strings.EqualFold(variant, scraper.OriginalVariantLabel) {
			sku = model + "-" + variant
		}

		var values []string
		for _, col := range tagCols {
			if cell := sheet.Cell(row, col); cell != "" {
				values = append(values, strings.TrimSpace(sheet.Header[col])+": "+cell)
			}
		}
		if len(values) == 0 {
			summary.Skipped++
			continue
		}

		ref, err := p.shopify.FindVariantBySKU(ctx, sku)
		if err != nil || ref == nil {
			summary.Failed++
			summary.addError("SKU not found: " + sku)
			continue
		}

		if err := p.shopify.UpdateProductTags(ctx, ref.ProductGID, values); err != nil {
			summary.Failed++
			summary.addError("Failed to update: " + sku)
			continue
		}

		summary.Updated++
		p.state.AddLog("Updated tags for "+sku, "success")

		if (i+1)%10 == 0 {
			percent := int(float64(i) / float64(summary.Total) * 100)
			p.state.Progress(percent, fmt.Sprintf("Processing %d/%d", i+1, summary.Total))
		}
	}

	return summary, nil
}

func (s *Summary) addError(msg string) {
	if len(s.Errors) < maxReportedErrors {
		s.Errors = append(s.Errors, msg)
	}
}
