package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cityfood/vendorflow/internal/scraper"
)

// Table is an in-memory sheet: one header row plus data rows. Rows may be
// ragged; readers must index defensively.
type Table struct {
	Header []string
	Rows   [][]string
}

// ColumnIndex finds a column by exact name, ignoring surrounding whitespace
// and case. Returns -1 when absent.
func (t *Table) ColumnIndex(name string) int {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range t.Header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i
		}
	}
	return -1
}

// FindColumn returns the index of the first header the predicate accepts, or
// -1.
func (t *Table) FindColumn(match func(string) bool) int {
	for i, h := range t.Header {
		if match(h) {
			return i
		}
	}
	return -1
}

// Cell returns row[col], or "" when the row is too short.
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// Column returns every value of the named column, skipping blank cells.
func (t *Table) Column(name string) []string {
	idx := t.ColumnIndex(name)
	if idx == -1 {
		return nil
	}
	var values []string
	for _, row := range t.Rows {
		if v := t.Cell(row, idx); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

func WriteCSV(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range t.Rows {
		// Pad ragged rows so every record has the header's width.
		padded := row
		if len(padded) < len(t.Header) {
			padded = append(append([]string{}, row...), make([]string, len(t.Header)-len(row))...)
		}
		if err := writer.Write(padded); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadXLSX reads the first sheet of a workbook.
func ReadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet: %w", err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}
	return &Table{Header: rows[0], Rows: rows[1:]}, nil
}

func WriteXLSX(path string, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := writeSheetRow(f, sheet, 1, t.Header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := writeSheetRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSheetRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}

// fixedColumns is the deterministic front of every exported scrape sheet.
var fixedColumns = []string{
	scraper.ColModel,
	scraper.ColVariant,
	scraper.ColTitle,
	scraper.ColDescription,
	scraper.ColPrice,
	scraper.ColMainImage,
	"Additional Image 1", "Additional Image 2", "Additional Image 3", "Additional Image 4", "Additional Image 5",
	"Video Link 1", "Video Link 2", "Video Link 3", "Video Link 4", "Video Link 5",
}

// FromRows flattens scrape rows into a sheet with a deterministic column
// layout: the fixed columns first, then the union of the remaining columns
// sorted by name. Rows missing a column get a blank cell.
func FromRows(rows []scraper.Row) *Table {
	fixed := make(map[string]bool, len(fixedColumns))
	for _, c := range fixedColumns {
		fixed[c] = true
	}

	extraSet := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			if !fixed[col] {
				extraSet[col] = true
			}
		}
	}
	extras := make([]string, 0, len(extraSet))
	for col := range extraSet {
		extras = append(extras, col)
	}
	sort.Strings(extras)

	header := append(append([]string{}, fixedColumns...), extras...)

	t := &Table{Header: header}
	for _, row := range rows {
		record := make([]string, len(header))
		for i, col := range header {
			record[i] = row[col]
		}
		t.Rows = append(t.Rows, record)
	}
	return t
}
