package ingest

import (
	"errors"
	"fmt"
	"io"

	"github.com/pulseboard/kpi-import/internal/models"
)

// DefaultPreviewRows is the number of data rows materialized for display.
const DefaultPreviewRows = 5

// Preview produces a bounded sample of data rows for display alongside the
// exact total data-row count. A single streaming pass counts every row while
// buffering only the first sampleSize, so the total always equals the number
// of rows a full import would attempt. Preview performs no catalog access.
func Preview(rr RowReader, sampleSize int) (*models.ImportPreview, error) {
	if sampleSize <= 0 {
		sampleSize = DefaultPreviewRows
	}

	header, err := rr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, NewStructuralError("file is empty")
		}
		return nil, fmt.Errorf("read header row: %w", err)
	}

	layout, err := ClassifyHeader(header)
	if err != nil {
		return nil, err
	}

	preview := &models.ImportPreview{
		Headers:       layout.Headers,
		Rows:          make([][]string, 0, sampleSize),
		HasRoomColumn: layout.HasRoomColumn,
		DateCount:     len(layout.DateColumns),
	}

	for {
		row, err := rr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read data row: %w", err)
		}
		if len(preview.Rows) < sampleSize {
			preview.Rows = append(preview.Rows, row)
		}
		preview.TotalRows++
	}

	return preview, nil
}
