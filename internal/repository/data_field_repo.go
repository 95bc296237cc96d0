package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulseboard/kpi-import/internal/models"
)

// DataFieldRepository handles data access for the data-field catalog.
type DataFieldRepository struct {
	pool *pgxpool.Pool
}

// NewDataFieldRepository creates a new data field repository.
func NewDataFieldRepository(pool *pgxpool.Pool) *DataFieldRepository {
	return &DataFieldRepository{pool: pool}
}

// dataFieldColumns is the canonical column list for data_fields, used across
// all queries.
const dataFieldColumns = `id, org_id, name, variable_name, description, unit,
	entry_interval, created_at`

// scanDataField scans a row into a DataField using the canonical column order.
func scanDataField(row pgx.Row, f *models.DataField) error {
	return row.Scan(
		&f.ID,
		&f.OrgID,
		&f.Name,
		&f.VariableName,
		&f.Description,
		&f.Unit,
		&f.EntryInterval,
		&f.CreatedAt,
	)
}

// FindByVariable retrieves a data field by its normalized variable name,
// scoped to the org. Returns nil, nil when absent.
func (r *DataFieldRepository) FindByVariable(ctx context.Context, orgID uuid.UUID, variableName string) (*models.DataField, error) {
	query := `SELECT ` + dataFieldColumns + ` FROM data_fields WHERE org_id = $1 AND variable_name = $2`
	field := &models.DataField{}
	err := scanDataField(r.pool.QueryRow(ctx, query, orgID, variableName), field)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return field, nil
}

// Create inserts a new data field. Concurrent imports racing on the same
// variable name are resolved at the store: on conflict the insert is a
// no-op and the existing field is returned instead, so callers always get
// exactly one field per (org, variable_name).
func (r *DataFieldRepository) Create(ctx context.Context, field *models.DataField) (*models.DataField, error) {
	if field == nil {
		return nil, errors.New("field cannot be nil")
	}

	query := `
		INSERT INTO data_fields (
			id, org_id, name, variable_name, description, unit,
			entry_interval, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		ON CONFLICT (org_id, variable_name) DO NOTHING
		RETURNING ` + dataFieldColumns

	created := &models.DataField{}
	err := scanDataField(r.pool.QueryRow(
		ctx, query,
		field.ID, field.OrgID, field.Name, field.VariableName,
		field.Description, field.Unit, field.EntryInterval, field.CreatedAt,
	), created)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race; the field already exists.
			return r.FindByVariable(ctx, field.OrgID, field.VariableName)
		}
		return nil, err
	}
	return created, nil
}

// List retrieves all data fields for an org, ordered by name.
func (r *DataFieldRepository) List(ctx context.Context, orgID uuid.UUID) ([]models.DataField, error) {
	query := `SELECT ` + dataFieldColumns + ` FROM data_fields WHERE org_id = $1 ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []models.DataField
	for rows.Next() {
		var f models.DataField
		if err := scanDataField(rows, &f); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// EnsureRoomAssignment records a (field, room) assignment. Idempotent.
func (r *DataFieldRepository) EnsureRoomAssignment(ctx context.Context, fieldID, roomID uuid.UUID) error {
	query := `
		INSERT INTO data_field_rooms (id, data_field_id, room_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (data_field_id, room_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, uuid.New(), fieldID, roomID)
	return err
}
