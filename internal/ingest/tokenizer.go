package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RowReader yields the rows of an import source one at a time. Blank rows
// are skipped and do not count toward row totals. A leading byte-order mark
// on the very first cell is stripped. Cell values are otherwise passed
// through verbatim; trimming header cells is the classifier's job.
type RowReader interface {
	// Read returns the next non-blank row, or io.EOF when the source is
	// exhausted.
	Read() ([]string, error)
}

// NewRowReader picks a reader implementation based on the filename
// extension: .xlsx sources go through excelize, everything else is
// treated as CSV.
func NewRowReader(filename string, r io.Reader) (RowReader, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return NewXLSXRowReader(r)
	}
	return NewCSVRowReader(r), nil
}

type csvRowReader struct {
	r     *csv.Reader
	first bool
}

// NewCSVRowReader creates a RowReader over delimited text with standard
// quoting rules. Rows may have a variable number of cells.
func NewCSVRowReader(r io.Reader) RowReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return &csvRowReader{r: cr, first: true}
}

func (c *csvRowReader) Read() ([]string, error) {
	for {
		row, err := c.r.Read()
		if err != nil {
			return nil, err
		}
		if c.first && len(row) > 0 {
			row[0] = strings.TrimPrefix(row[0], "\uFEFF")
		}
		if isBlankRow(row) {
			continue
		}
		c.first = false
		return row, nil
	}
}

type xlsxRowReader struct {
	rows  [][]string
	pos   int
	first bool
}

// NewXLSXRowReader reads the first sheet of an XLSX workbook and yields its
// rows through the same row model as CSV sources.
func NewXLSXRowReader(r io.Reader) (RowReader, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read xlsx source: %w", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, NewStructuralError("invalid xlsx file: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewStructuralError("xlsx file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	return &xlsxRowReader{rows: rows, first: true}, nil
}

func (x *xlsxRowReader) Read() ([]string, error) {
	for x.pos < len(x.rows) {
		row := x.rows[x.pos]
		x.pos++
		if x.first && len(row) > 0 {
			row[0] = strings.TrimPrefix(row[0], "\uFEFF")
		}
		if isBlankRow(row) {
			continue
		}
		x.first = false
		return row, nil
	}
	return nil, io.EOF
}

// isBlankRow reports whether every cell in the row is empty or whitespace.
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
