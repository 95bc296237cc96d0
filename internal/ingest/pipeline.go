package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pulseboard/kpi-import/internal/models"
)

// Catalog is the catalog-store capability consumed by the pipeline: field
// lookup and creation, room lookup, and room-assignment bookkeeping. The
// pipeline creates fields but never rooms, and deletes nothing.
type Catalog interface {
	// FindFieldByVariable looks up a data field by its normalized variable
	// name. Returns nil, nil when absent.
	FindFieldByVariable(ctx context.Context, orgID uuid.UUID, variableName string) (*models.DataField, error)
	// CreateField inserts a new data field. Implementations must be safe
	// against concurrent imports creating the same name: on a variable-name
	// conflict the existing field is returned instead.
	CreateField(ctx context.Context, field *models.DataField) (*models.DataField, error)
	// FindRoomByName looks up a room by normalized name. Returns nil, nil
	// when absent.
	FindRoomByName(ctx context.Context, orgID uuid.UUID, name string) (*models.Room, error)
	// EnsureRoomAssignment records that a field has values in a room.
	// Idempotent.
	EnsureRoomAssignment(ctx context.Context, fieldID, roomID uuid.UUID) error
}

// EntryStore upserts dated value entries keyed by (field, room, date):
// insert if absent, overwrite the value if present.
type EntryStore interface {
	Upsert(ctx context.Context, entry *models.FieldEntry) error
}

// Recalculator maps touched fields to dependent KPIs and schedules their
// recomputation. DependentKPIs is synchronous so the report can carry the
// count; Recompute may run in the background.
type Recalculator interface {
	DependentKPIs(ctx context.Context, orgID uuid.UUID, fieldIDs []uuid.UUID) ([]uuid.UUID, error)
	Recompute(orgID uuid.UUID, kpiIDs []uuid.UUID, from, to time.Time)
}

// Pipeline runs one import invocation: one source in, one report out. Row
// processing is sequential; later rows referencing a field created by an
// earlier row observe that creation through an in-memory resolution cache.
type Pipeline struct {
	catalog Catalog
	entries EntryStore
	recalc  Recalculator
}

// NewPipeline creates an import pipeline over the given collaborators.
func NewPipeline(catalog Catalog, entries EntryStore, recalc Recalculator) *Pipeline {
	return &Pipeline{catalog: catalog, entries: entries, recalc: recalc}
}

// resolvedField caches a field resolution for the duration of one import.
type resolvedField struct {
	field   *models.DataField
	created bool
}

// Import reads the source, reconciles every data row against the catalog,
// upserts entries, triggers KPI recomputation, and returns the final report.
//
// Error contract: a *StructuralError (or store failure) aborts the whole
// import; per-row defects are captured in the report's Errors and never
// short-circuit sibling rows. entries_created counts all successful upserts,
// overwrites included.
func (p *Pipeline) Import(ctx context.Context, orgID uuid.UUID, rr RowReader) (*models.ImportReport, error) {
	logger := slog.Default().With(
		slog.String("service", "import-pipeline"),
		slog.String("org_id", orgID.String()),
	)

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

	logger.Info("header classified",
		slog.Bool("has_room_column", layout.HasRoomColumn),
		slog.Int("date_columns", len(layout.DateColumns)),
		slog.Int("unmatched_columns", len(layout.UnmatchedColumns)),
	)

	// Per-invocation resolution caches. Pending creations are consulted
	// before the persistent catalog so a new name is created exactly once
	// per import no matter how many rows reference it.
	fields := make(map[string]*resolvedField)
	rooms := make(map[string]*models.Room)
	assignments := make(map[[2]uuid.UUID]bool)

	var (
		rowsProcessed  int
		entriesCreated int
		fieldsCreated  []string
		rowErrors      []models.RowError
		touchedFields  = make(map[uuid.UUID]bool)
		minDate        time.Time
		maxDate        time.Time
	)

	for {
		row, err := rr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read data row: %w", err)
		}

		rowsProcessed++
		rowNum := rowsProcessed

		written, rowErr, err := p.importRow(ctx, orgID, layout, row, rowNum, fields, rooms, assignments, &fieldsCreated)
		if err != nil {
			return nil, err
		}
		if rowErr != nil {
			rowErrors = append(rowErrors, models.RowError{Row: rowErr.Row, Error: rowErr.Reason})
			continue
		}

		entriesCreated += len(written)
		for _, e := range written {
			touchedFields[e.DataFieldID] = true
			if minDate.IsZero() || e.EntryDate.Before(minDate) {
				minDate = e.EntryDate
			}
			if maxDate.IsZero() || e.EntryDate.After(maxDate) {
				maxDate = e.EntryDate
			}
		}
	}

	if rowsProcessed == 0 {
		return nil, NewStructuralError("file must have a header row and at least one data row")
	}

	kpisRecalculated, err := p.triggerRecalculation(ctx, logger, orgID, touchedFields, minDate, maxDate)
	if err != nil {
		return nil, err
	}

	sort.Slice(rowErrors, func(i, j int) bool { return rowErrors[i].Row < rowErrors[j].Row })

	report := &models.ImportReport{
		RowsProcessed:    rowsProcessed,
		EntriesCreated:   entriesCreated,
		FieldsCreated:    append([]string{}, fieldsCreated...),
		UnmatchedColumns: append([]string{}, layout.UnmatchedColumns...),
		KPIsRecalculated: kpisRecalculated,
		Errors:           rowErrors,
	}
	if report.FieldsCreated == nil {
		report.FieldsCreated = []string{}
	}
	if report.UnmatchedColumns == nil {
		report.UnmatchedColumns = []string{}
	}
	if report.Errors == nil {
		report.Errors = []models.RowError{}
	}

	logger.Info("import completed",
		slog.Int("rows_processed", report.RowsProcessed),
		slog.Int("entries_created", report.EntriesCreated),
		slog.Int("fields_created", len(report.FieldsCreated)),
		slog.Int("row_errors", len(report.Errors)),
		slog.Int("kpis_recalculated", report.KPIsRecalculated),
	)

	return report, nil
}

// importRow resolves one data row and upserts its entries. It returns the
// entries written, a row-level failure (isolated, non-fatal), or a store
// error that aborts the import. All cells of the row are parsed before any
// write, so a bad cell never leaves the row partially written.
func (p *Pipeline) importRow(
	ctx context.Context,
	orgID uuid.UUID,
	layout *HeaderLayout,
	row []string,
	rowNum int,
	fields map[string]*resolvedField,
	rooms map[string]*models.Room,
	assignments map[[2]uuid.UUID]bool,
	fieldsCreated *[]string,
) ([]models.FieldEntry, *RowFailure, error) {
	fieldName := strings.TrimSpace(cellAt(row, 0))
	if fieldName == "" {
		return nil, NewRowFailure(rowNum, "missing field name"), nil
	}

	// Resolve the room before touching the catalog for the field: an
	// unresolvable room fails the row with zero entries and zero catalog
	// writes.
	var room *models.Room
	if layout.HasRoomColumn {
		roomName := strings.TrimSpace(cellAt(row, 1))
		if roomName != "" {
			r, err := p.resolveRoom(ctx, orgID, roomName, rooms)
			if err != nil {
				return nil, nil, err
			}
			if r == nil {
				return nil, NewRowFailure(rowNum, "unknown room: %s", roomName), nil
			}
			room = r
		}
	}

	// Parse every recognized date cell up front (fail-fast at row
	// granularity). Empty cells carry no value and are skipped.
	type pending struct {
		date  time.Time
		value decimal.Decimal
	}
	var values []pending
	for _, col := range layout.DateColumns {
		cell := strings.TrimSpace(cellAt(row, col.Index))
		if cell == "" {
			continue
		}
		v, err := decimal.NewFromString(cell)
		if err != nil {
			return nil, NewRowFailure(rowNum, "invalid value %q for %s", cell, col.Header), nil
		}
		values = append(values, pending{date: col.Date, value: v})
	}

	resolved, err := p.resolveField(ctx, orgID, fieldName, fields, fieldsCreated)
	if err != nil {
		return nil, nil, err
	}

	if room != nil {
		key := [2]uuid.UUID{resolved.field.ID, room.ID}
		if !assignments[key] {
			if err := p.catalog.EnsureRoomAssignment(ctx, resolved.field.ID, room.ID); err != nil {
				return nil, nil, fmt.Errorf("assign field to room: %w", err)
			}
			assignments[key] = true
		}
	}

	now := time.Now().UTC()
	written := make([]models.FieldEntry, 0, len(values))
	for _, pv := range values {
		entry := models.FieldEntry{
			ID:          uuid.New(),
			DataFieldID: resolved.field.ID,
			EntryDate:   pv.date,
			Value:       pv.value,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if room != nil {
			roomID := room.ID
			entry.RoomID = &roomID
		}
		if err := p.entries.Upsert(ctx, &entry); err != nil {
			return nil, nil, fmt.Errorf("upsert entry: %w", err)
		}
		written = append(written, entry)
	}

	return written, nil, nil
}

// resolveField returns the data field for a name, consulting the in-memory
// cache first, then the catalog, then creating the field. Each distinct new
// name is created and reported exactly once per import.
func (p *Pipeline) resolveField(
	ctx context.Context,
	orgID uuid.UUID,
	name string,
	fields map[string]*resolvedField,
	fieldsCreated *[]string,
) (*resolvedField, error) {
	variable := VariableName(name)
	if cached, ok := fields[variable]; ok {
		return cached, nil
	}

	field, err := p.catalog.FindFieldByVariable(ctx, orgID, variable)
	if err != nil {
		return nil, fmt.Errorf("look up field %q: %w", name, err)
	}

	created := false
	if field == nil {
		field, err = p.catalog.CreateField(ctx, &models.DataField{
			ID:            uuid.New(),
			OrgID:         orgID,
			Name:          name,
			VariableName:  variable,
			EntryInterval: "daily",
			CreatedAt:     time.Now().UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("create field %q: %w", name, err)
		}
		created = true
		*fieldsCreated = append(*fieldsCreated, name)
	}

	resolved := &resolvedField{field: field, created: created}
	fields[variable] = resolved
	return resolved, nil
}

// resolveRoom looks up a room by name with per-import caching. A cached nil
// marks a name already known to be absent.
func (p *Pipeline) resolveRoom(
	ctx context.Context,
	orgID uuid.UUID,
	name string,
	rooms map[string]*models.Room,
) (*models.Room, error) {
	key := strings.ToLower(name)
	if room, ok := rooms[key]; ok {
		return room, nil
	}

	room, err := p.catalog.FindRoomByName(ctx, orgID, name)
	if err != nil {
		return nil, fmt.Errorf("look up room %q: %w", name, err)
	}
	rooms[key] = room
	return room, nil
}

// triggerRecalculation resolves the distinct set of KPIs affected by the
// touched fields and dispatches their recomputation. The count is resolved
// synchronously; the recomputation itself runs in the background.
func (p *Pipeline) triggerRecalculation(
	ctx context.Context,
	logger *slog.Logger,
	orgID uuid.UUID,
	touchedFields map[uuid.UUID]bool,
	minDate, maxDate time.Time,
) (int, error) {
	if len(touchedFields) == 0 {
		return 0, nil
	}

	fieldIDs := make([]uuid.UUID, 0, len(touchedFields))
	for id := range touchedFields {
		fieldIDs = append(fieldIDs, id)
	}

	kpiIDs, err := p.recalc.DependentKPIs(ctx, orgID, fieldIDs)
	if err != nil {
		return 0, fmt.Errorf("resolve dependent KPIs: %w", err)
	}
	if len(kpiIDs) == 0 {
		return 0, nil
	}

	logger.Info("scheduling KPI recomputation",
		slog.Int("kpi_count", len(kpiIDs)),
		slog.String("from", minDate.Format(DateLayout)),
		slog.String("to", maxDate.Format(DateLayout)),
	)
	p.recalc.Recompute(orgID, kpiIDs, minDate, maxDate)

	return len(kpiIDs), nil
}

// VariableName derives the org-unique variable name used for matching: the
// display name trimmed, case-folded, with whitespace runs collapsed to a
// single underscore.
func VariableName(name string) string {
	parts := strings.Fields(strings.ToLower(name))
	return strings.Join(parts, "_")
}

// cellAt returns the cell at index i, or "" when the row is short. Rows may
// legitimately have fewer cells than the header.
func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
