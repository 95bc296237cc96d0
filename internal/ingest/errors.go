package ingest

import "fmt"

// StructuralError is a file-level defect detected before any catalog
// mutation: empty file, missing data rows, invalid field column header.
// It rejects the entire import.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return e.Reason
}

// NewStructuralError creates a structural error with a formatted reason.
func NewStructuralError(format string, args ...interface{}) *StructuralError {
	return &StructuralError{Reason: fmt.Sprintf(format, args...)}
}

// RowFailure is a per-row defect detected during processing: unresolvable
// room, unparseable value. It is isolated to that row and does not prevent
// subsequent rows from being processed.
type RowFailure struct {
	Row    int // 1-based data row number
	Reason string
}

func (e *RowFailure) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// NewRowFailure creates a row failure with a formatted reason.
func NewRowFailure(row int, format string, args ...interface{}) *RowFailure {
	return &RowFailure{Row: row, Reason: fmt.Sprintf(format, args...)}
}
