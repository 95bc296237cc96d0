package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// templateRows is the illustrative sample shipped with the template
// download: the multi-room shape with the room column in position 1 and
// YYYY-MM-DD date headers.
var templateRows = [][]string{
	{"field", "room", "2026-01-15", "2026-01-16", "2026-01-17"},
	{"revenue", "Marketing School", "15000", "18500", "20000"},
	{"revenue", "Design School", "28000", "121000", "96000"},
	{"signups", "Marketing School", "42", "38", "51"},
}

// TemplateCSV renders the import template as CSV. Pure and side-effect-free;
// no catalog interaction.
func TemplateCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(templateRows); err != nil {
		return nil, fmt.Errorf("write template csv: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush template csv: %w", err)
	}
	return buf.Bytes(), nil
}

// TemplateXLSX renders the same template as an XLSX workbook.
func TemplateXLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range templateRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("template cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write template row %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write template xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
