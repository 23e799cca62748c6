package tags

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityfood/vendorflow/internal/jobs"
	"github.com/cityfood/vendorflow/internal/tabular"
)

func TestCleanSKU(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "no suffix", input: "AQ75", expected: "AQ75"},
		{name: "gas suffix", input: "AQ75-LP", expected: "AQ75"},
		{name: "voltage suffix", input: "MX200-2403", expected: "MX200"},
		{name: "stacked suffixes", input: "AQ75-NG-LP", expected: "AQ75"},
		{name: "unknown suffix kept", input: "AQ75-XL", expected: "AQ75-XL"},
		{name: "suffix token mid-sku kept", input: "LP-500", expected: "LP-500"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanSKU(tt.input))
		})
	}
}

func buildWideRow(model string, cells map[int]string) []string {
	row := make([]string, attributeColLast)
	row[0] = model
	for col, v := range cells {
		row[col-1] = v // col is 1-based
	}
	return row
}

func TestBuildLookup(t *testing.T) {
	header := make([]string, attributeColLast)
	header[0] = "Mfr Model"
	header[attributeColFirst-1] = "Voltage"
	header[attributeColFirst] = "Additional Image 1"
	header[attributeColFirst+1] = "Amps"
	header[attributeColFirst+2] = ""

	wb := &tabular.Table{
		Header: header,
		Rows: [][]string{
			buildWideRow("AQ75", map[int]string{
				attributeColFirst:     "115v",
				attributeColFirst + 1: "ignored.jpg",
				attributeColFirst + 2: "15",
				attributeColFirst + 3: "headerless",
			}),
			buildWideRow("", map[int]string{attributeColFirst: "orphan"}),
			buildWideRow("BX10", nil),
		},
	}

	lookup := BuildLookup(wb)

	require.Len(t, lookup, 2)
	assert.Equal(t, "Voltage: 115v, Amps: 15, headerless", lookup["AQ75"])
	assert.Equal(t, "", lookup["BX10"])
}

func TestProcessTags(t *testing.T) {
	dir := t.TempDir()
	workbookPath := filepath.Join(dir, "scraped.xlsx")
	csvPath := filepath.Join(dir, "export.csv")
	outputPath := filepath.Join(dir, "out.csv")

	header := make([]string, attributeColLast)
	header[0] = "Mfr Model"
	header[attributeColFirst-1] = "Voltage"
	wb := &tabular.Table{
		Header: header,
		Rows:   [][]string{buildWideRow("AQ75", map[int]string{attributeColFirst: "115v"})},
	}
	require.NoError(t, tabular.WriteXLSX(workbookPath, wb))

	require.NoError(t, tabular.WriteCSV(csvPath, &tabular.Table{
		Header: []string{"Handle", "Variant SKU", "Tags"},
		Rows: [][]string{
			{"fryer", "AQ75-LP", "old tags"},
			{"slicer", "ZZ99", "keep me"},
			{"blank", "", ""},
		},
	}))

	state := jobs.NewState(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	p := NewProcessor(nil, state, slog.Default())

	summary, err := p.ProcessTags(workbookPath, csvPath, outputPath)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Lookup)

	out, err := tabular.ReadCSV(outputPath)
	require.NoError(t, err)
	tagsCol := out.ColumnIndex("Tags")
	assert.Equal(t, "Voltage: 115v", out.Cell(out.Rows[0], tagsCol), "matched rows get the lookup tags")
	assert.Equal(t, "keep me", out.Cell(out.Rows[1], tagsCol), "unmatched rows keep their tags")
}

func TestProcessTagsRequiresSKUColumn(t *testing.T) {
	dir := t.TempDir()
	workbookPath := filepath.Join(dir, "scraped.xlsx")
	csvPath := filepath.Join(dir, "export.csv")

	require.NoError(t, tabular.WriteXLSX(workbookPath, &tabular.Table{Header: []string{"Mfr Model"}}))
	require.NoError(t, tabular.WriteCSV(csvPath, &tabular.Table{Header: []string{"Handle"}}))

	state := jobs.NewState(slog.Default())
	p := NewProcessor(nil, state, slog.Default())

	_, err := p.ProcessTags(workbookPath, csvPath, filepath.Join(dir, "out.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Variant SKU")
}

func TestBuildLookupIgnoresColumnsOutsideRange(t *testing.T) {
	header := make([]string, attributeColLast+3)
	header[0] = "Mfr Model"
	header[1] = "Title"
	header[attributeColLast] = "Beyond"

	row := make([]string, attributeColLast+3)
	row[0] = "AQ75"
	row[1] = "A fryer"
	row[attributeColLast] = "out of range"

	lookup := BuildLookup(&tabular.Table{Header: header, Rows: [][]string{row}})
	assert.Equal(t, "", lookup["AQ75"])
}
