package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Org represents a platform organization. All catalog data is org-scoped.
type Org struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DataField is a named metric tracked over time (e.g., "Revenue").
// VariableName is the org-unique, normalized identifier used for matching
// and in KPI formulas; it is immutable once created.
// DB columns: id, org_id, name, variable_name, description, unit,
//
//	entry_interval, created_at
type DataField struct {
	ID            uuid.UUID `json:"id"`
	OrgID         uuid.UUID `json:"org_id"`
	Name          string    `json:"name"`
	VariableName  string    `json:"variable_name"`
	Description   *string   `json:"description,omitempty"`
	Unit          *string   `json:"unit,omitempty"`
	EntryInterval string    `json:"entry_interval"`
	CreatedAt     time.Time `json:"created_at"`
}

// Room is an optional sub-dimension partitioning a field's values
// (a named unit or location). Rooms are never created by imports.
// DB columns: id, org_id, name, created_at
type Room struct {
	ID        uuid.UUID `json:"id"`
	OrgID     uuid.UUID `json:"org_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// FieldEntry is one dated value for a (field, room) pair. RoomID is nil for
// entries with global scope. Unique per (data_field_id, room_id, entry_date);
// re-importing the same key overwrites Value in place.
// DB columns: id, data_field_id, room_id, entry_date, value, created_at, updated_at
type FieldEntry struct {
	ID          uuid.UUID       `json:"id"`
	DataFieldID uuid.UUID       `json:"data_field_id"`
	RoomID      *uuid.UUID      `json:"room_id,omitempty"`
	EntryDate   time.Time       `json:"entry_date"`
	Value       decimal.Decimal `json:"value"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// KPI is an aggregate indicator computed from one or more data fields.
// DB columns: id, org_id, name, formula, created_at
type KPI struct {
	ID        uuid.UUID `json:"id"`
	OrgID     uuid.UUID `json:"org_id"`
	Name      string    `json:"name"`
	Formula   string    `json:"formula"`
	CreatedAt time.Time `json:"created_at"`
}

// KPIValue is a cached KPI result for one date.
// DB columns: id, kpi_id, value_date, value, computed_at
type KPIValue struct {
	ID         uuid.UUID       `json:"id"`
	KPIID      uuid.UUID       `json:"kpi_id"`
	ValueDate  time.Time       `json:"value_date"`
	Value      decimal.Decimal `json:"value"`
	ComputedAt time.Time       `json:"computed_at"`
}

// RowError records a single-row defect isolated from the rest of an import.
// Row is the 1-based data row number (the header is not counted).
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportReport is the terminal summary of one import invocation. It is built
// once by the pipeline and never mutated afterwards.
type ImportReport struct {
	RowsProcessed    int        `json:"rows_processed"`
	EntriesCreated   int        `json:"entries_created"`
	FieldsCreated    []string   `json:"fields_created"`
	UnmatchedColumns []string   `json:"unmatched_columns"`
	KPIsRecalculated int        `json:"kpis_recalculated"`
	Errors           []RowError `json:"errors"`
}

// ImportPreview is the bounded sample view returned before a full import.
// TotalRows is exact: it counts every data row the import would attempt,
// not an extrapolation from the sample.
type ImportPreview struct {
	Headers       []string   `json:"headers"`
	Rows          [][]string `json:"rows"`
	TotalRows     int        `json:"total_rows"`
	HasRoomColumn bool       `json:"has_room_column"`
	DateCount     int        `json:"date_count"`
}

// Pagination holds pagination metadata for list endpoints.
type Pagination struct {
	Page         int `json:"page"`
	PageSize     int `json:"page_size"`
	TotalResults int `json:"total_results"`
	TotalPages   int `json:"total_pages"`
}
