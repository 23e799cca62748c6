package eniture

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cityfood/vendorflow/internal/jobs"
	"github.com/cityfood/vendorflow/internal/shopify"
	"github.com/cityfood/vendorflow/internal/tabular"
)

// SyncSummary reports the outcome of one shipping-attribute sync run.
type SyncSummary struct {
	Successful int      `json:"successful_syncs"`
	Failed     int      `json:"failed_syncs"`
	Skipped    int      `json:"skipped_rows"`
	Total      int      `json:"total_rows"`
	Stopped    bool     `json:"stopped"`
	Errors     []string `json:"errors"`
}

const maxReportedErrors = 20

// SyncJob walks a ProductID/ManufacturerSKU lookup sheet, joins each row to
// the vendor weight CSV by manufacturer model, resolves the Shopify variant
// and pushes the derived shipping attributes to Eniture.
type SyncJob struct {
	shopify *shopify.Client
	client  *Client
	state   *jobs.State
	logger  *slog.Logger
}

func NewSyncJob(shopifyClient *shopify.Client, client *Client, state *jobs.State, logger *slog.Logger) *SyncJob {
	return &SyncJob{
		shopify: shopifyClient,
		client:  client,
		state:   state,
		logger:  logger.With("component", "eniture_sync"),
	}
}

func (j *SyncJob) Run(ctx context.Context, lookup, weights *tabular.Table) (*SyncSummary, error) {
	productIDCol := lookup.ColumnIndex("ProductID")
	mfrSKUCol := lookup.ColumnIndex("ManufacturerSKU")
	if productIDCol == -1 || mfrSKUCol == -1 {
		return nil, fmt.Errorf("lookup file must have ProductID and ManufacturerSKU columns")
	}

	modelCol := weights.ColumnIndex("Mfr Model")
	if modelCol == -1 {
		return nil, fmt.Errorf("weight file must have a Mfr Model column")
	}

	// Index weight rows by model so each lookup row joins in one step.
	weightByModel := make(map[string][]string, len(weights.Rows))
	for _, row := range weights.Rows {
		model := weights.Cell(row, modelCol)
		if model != "" {
			if _, seen := weightByModel[model]; !seen {
				weightByModel[model] = row
			}
		}
	}

	summary := &SyncSummary{Total: len(lookup.Rows)}

	for i, row := range lookup.Rows {
		if j.state.Stopped() {
			summary.Stopped = true
			break
		}

		productID := lookup.Cell(row, productIDCol)
		mfrSKU := lookup.Cell(row, mfrSKUCol)
		if productID == "" || mfrSKU == "" {
			summary.Skipped++
			continue
		}

		weightRow, ok := weightByModel[mfrSKU]
		if !ok {
			summary.Failed++
			summary.addError("No weight data for: " + mfrSKU)
			continue
		}

		ref, err := j.shopify.FindVariantBySKU(ctx, productID)
		if err != nil || ref == nil {
			summary.Failed++
			summary.addError("Shopify lookup failed: " + productID)
			continue
		}

		attrs := BuildAttributes(
			numericCell(weights, weightRow, "Shipping Weight"),
			numericCell(weights, weightRow, "Depth"),
			numericCell(weights, weightRow, "Width"),
			numericCell(weights, weightRow, "Height"),
			numericCell(weights, weightRow, "Freight Class"),
		)

		if err := j.client.SyncProduct(ctx, ref.ProductID, ref.VariantID, attrs); err != nil {
			summary.Failed++
			summary.addError(fmt.Sprintf("API error for %s: %v", productID, err))
			continue
		}

		summary.Successful++
		j.state.AddLog("Synced: "+productID, "success")

		if (i+1)%10 == 0 {
			percent := int(float64(i) / float64(summary.Total) * 100)
			j.state.Progress(percent, fmt.Sprintf("Synced: %d, Failed: %d", summary.Successful, summary.Failed))
		}
	}

	return summary, nil
}

func (s *SyncSummary) addError(msg string) {
	if len(s.Errors) < maxReportedErrors {
		s.Errors = append(s.Errors, msg)
	}
}

// numericCell parses a named column of a weight row, treating blanks and
// garbage as zero.
func numericCell(t *tabular.Table, row []string, column string) float64 {
	idx := t.ColumnIndex(column)
	if idx == -1 {
		return 0
	}
	raw := strings.TrimSpace(t.Cell(row, idx))
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}
