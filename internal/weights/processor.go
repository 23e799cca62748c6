package weights

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/cityfood/vendorflow/internal/jobs"
	"github.com/cityfood/vendorflow/internal/tabular"
	"github.com/cityfood/vendorflow/internal/tags"
)

// Dimensions is one vendor row's shipping profile.
type Dimensions struct {
	Weight       float64
	Width        float64
	Depth        float64
	Height       float64
	FreightClass string
	ShipZip      string
}

// QuoteMethod picks small parcel ("S") versus LTL freight ("L") for a row.
// Anything at or over 85 lbs ships freight; rows without a weight fall back
// to whether a freight class was assigned.
func QuoteMethod(weight float64, freightClass string) string {
	if weight > 0 {
		if weight < 85 {
			return "S"
		}
		return "L"
	}
	if strings.TrimSpace(freightClass) == "" {
		return "S"
	}
	return "L"
}

// defaultFreightClass is assumed for LTL rows the vendor left unclassified.
const defaultFreightClass = "175"

// Summary reports the outcome of a weight enrichment run.
type Summary struct {
	Updated int  `json:"updated_rows"`
	Total   int  `json:"total_rows"`
	Vendor  int  `json:"vendor_entries"`
	Stopped bool `json:"stopped"`
}

// Processor merges vendor shipping dimensions into a Shopify export CSV:
// weight and dimensions are ceiled, the quote method derived, and missing
// freight classes defaulted for LTL rows.
type Processor struct {
	state  *jobs.State
	logger *slog.Logger
}

func NewProcessor(state *jobs.State, logger *slog.Logger) *Processor {
	return &Processor{
		state:  state,
		logger: logger.With("component", "weight_processor"),
	}
}

// BuildVendorLookup maps manufacturer model -> dimensions from the vendor
// CSV. Column names are matched case-insensitively.
func BuildVendorLookup(vendor *tabular.Table) map[string]Dimensions {
	modelCol := vendor.ColumnIndex("Mfr Model")
	weightCol := vendor.ColumnIndex("Shipping Weight")
	widthCol := vendor.ColumnIndex("Width")
	depthCol := vendor.ColumnIndex("Depth")
	heightCol := vendor.ColumnIndex("Height")
	freightCol := vendor.ColumnIndex("Freight Class")
	zipCol := vendor.ColumnIndex("Ship From Zip")

	lookup := make(map[string]Dimensions)
	if modelCol == -1 {
		return lookup
	}

	for _, row := range vendor.Rows {
		model := vendor.Cell(row, modelCol)
		if model == "" {
			continue
		}
		lookup[model] = Dimensions{
			Weight:       parseNumber(vendor.Cell(row, weightCol)),
			Width:        parseNumber(vendor.Cell(row, widthCol)),
			Depth:        parseNumber(vendor.Cell(row, depthCol)),
			Height:       parseNumber(vendor.Cell(row, heightCol)),
			FreightClass: vendor.Cell(row, freightCol),
			ShipZip:      vendor.Cell(row, zipCol),
		}
	}
	return lookup
}

// Process joins the vendor lookup onto the output CSV by cleaned Variant SKU
// and writes the enriched table back to outputPath.
func (p *Processor) Process(vendorPath, outputPath string) (*Summary, error) {
	p.state.AddLog("Loading vendor CSV...", "info")
	vendor, err := tabular.ReadCSV(vendorPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load vendor csv: %w", err)
	}

	p.state.AddLog("Building vendor lookup...", "info")
	lookup := BuildVendorLookup(vendor)
	p.state.AddLog(fmt.Sprintf("Vendor lookup: %d entries", len(lookup)), "info")

	p.state.AddLog("Loading output CSV...", "info")
	output, err := tabular.ReadCSV(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load output csv: %w", err)
	}

	skuCol := output.ColumnIndex("Variant SKU")
	if skuCol == -1 {
		return nil, fmt.Errorf("output csv must have a Variant SKU column")
	}

	cols := map[string]int{}
	for _, name := range []string{"Weight", "Length", "Width", "Height", "Freight Class", "Dropship Zipcode", "Quote Method"} {
		idx := output.ColumnIndex(name)
		if idx == -1 {
			output.Header = append(output.Header, name)
			idx = len(output.Header) - 1
		}
		cols[name] = idx
	}

	summary := &Summary{Total: len(output.Rows), Vendor: len(lookup)}

	for i, row := range output.Rows {
		if p.state.Stopped() {
			summary.Stopped = true
			break
		}

		sku := output.Cell(row, skuCol)
		if sku == "" {
			continue
		}
		dims, ok := lookup[tags.CleanSKU(sku)]
		if !ok {
			continue
		}

		for len(row) < len(output.Header) {
			row = append(row, "")
		}

		// Vendor width maps to export length, vendor depth to export width.
		row[cols["Weight"]] = ceilString(dims.Weight)
		row[cols["Length"]] = ceilString(dims.Width)
		row[cols["Width"]] = ceilString(dims.Depth)
		row[cols["Height"]] = ceilString(dims.Height)
		row[cols["Freight Class"]] = dims.FreightClass
		row[cols["Dropship Zipcode"]] = dims.ShipZip

		method := QuoteMethod(dims.Weight, dims.FreightClass)
		row[cols["Quote Method"]] = method
		if method == "L" && strings.TrimSpace(dims.FreightClass) == "" {
			row[cols["Freight Class"]] = defaultFreightClass
		}

		output.Rows[i] = row
		summary.Updated++

		if (i+1)%100 == 0 {
			percent := 40 + int(float64(i)/float64(summary.Total)*55)
			p.state.Progress(percent, fmt.Sprintf("Updated %d rows", summary.Updated))
		}
	}

	p.state.AddLog("Exporting to "+outputPath+"...", "info")
	if err := tabular.WriteCSV(outputPath, output); err != nil {
		return nil, fmt.Errorf("failed to write output csv: %w", err)
	}

	return summary, nil
}

func parseNumber(raw string) float64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

// ceilString renders a ceiled dimension; zero and negative values pass
// through as-is so empty vendor cells stay visibly empty-ish rather than
// rounding up to 1.
func ceilString(v float64) string {
	if v > 0 {
		return strconv.Itoa(int(math.Ceil(v)))
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
