package ingest

import (
	"strings"
	"time"
)

// DateLayout is the only accepted date header format: four-digit year,
// two-digit month, two-digit day, hyphen-separated.
const DateLayout = "2006-01-02"

// fieldHeaderAliases are the accepted values (lowercased, trimmed) for the
// first header cell.
var fieldHeaderAliases = map[string]bool{
	"field":      true,
	"field_name": true,
	"name":       true,
	"data_field": true,
}

// roomHeaderAliases are the accepted values for the optional second header
// cell that reserves a room column.
var roomHeaderAliases = map[string]bool{
	"room":      true,
	"room_name": true,
}

// DateColumn is a header column recognized as a calendar date.
type DateColumn struct {
	Index  int
	Header string
	Date   time.Time
}

// HeaderLayout is the role assignment of the header row, resolved once and
// threaded immutably through row processing. The field column is always
// index 0; the room column, if present, is always index 1.
type HeaderLayout struct {
	Headers          []string
	HasRoomColumn    bool
	DateColumns      []DateColumn
	UnmatchedColumns []string
}

// DataStart returns the index of the first non-reserved column.
func (l *HeaderLayout) DataStart() int {
	if l.HasRoomColumn {
		return 2
	}
	return 1
}

// ClassifyHeader inspects the header row and determines its role layout.
// The first cell must be a field-column alias or the whole file is rejected
// with a StructuralError. The room check is purely positional: "room" at any
// index other than 1 is treated as an ordinary date column candidate.
// Columns whose headers fail to parse as dates are collected as unmatched;
// that is not an error.
func ClassifyHeader(header []string) (*HeaderLayout, error) {
	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.TrimSpace(h)
	}

	if len(headers) == 0 || !fieldHeaderAliases[strings.ToLower(headers[0])] {
		return nil, NewStructuralError("invalid field column header: first column must be one of field, field_name, name, data_field")
	}

	layout := &HeaderLayout{Headers: headers}
	if len(headers) > 1 && roomHeaderAliases[strings.ToLower(headers[1])] {
		layout.HasRoomColumn = true
	}

	for i := layout.DataStart(); i < len(headers); i++ {
		d, ok := parseDateHeader(headers[i])
		if !ok {
			layout.UnmatchedColumns = append(layout.UnmatchedColumns, headers[i])
			continue
		}
		layout.DateColumns = append(layout.DateColumns, DateColumn{
			Index:  i,
			Header: headers[i],
			Date:   d,
		})
	}

	return layout, nil
}

// parseDateHeader parses a header as a strict YYYY-MM-DD date. The
// round-trip comparison rejects lenient matches such as "2026-1-5".
func parseDateHeader(h string) (time.Time, bool) {
	d, err := time.Parse(DateLayout, h)
	if err != nil || d.Format(DateLayout) != h {
		return time.Time{}, false
	}
	return d, true
}
