package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulseboard/kpi-import/internal/models"
)

// EntryRepository handles data access for dated field entries.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new entry repository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// Upsert writes an entry keyed by (field, room, date): insert if absent,
// overwrite the value if present. Entries with and without a room hit
// separate partial unique indexes, so the conflict target differs by case.
func (r *EntryRepository) Upsert(ctx context.Context, entry *models.FieldEntry) error {
	if entry == nil {
		return errors.New("entry cannot be nil")
	}

	if entry.RoomID == nil {
		query := `
			INSERT INTO field_entries (id, data_field_id, room_id, entry_date, value, created_at, updated_at)
			VALUES ($1, $2, NULL, $3, $4, $5, $5)
			ON CONFLICT (data_field_id, entry_date) WHERE room_id IS NULL
			DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		`
		_, err := r.pool.Exec(ctx, query,
			entry.ID, entry.DataFieldID, entry.EntryDate, entry.Value, entry.UpdatedAt)
		return err
	}

	query := `
		INSERT INTO field_entries (id, data_field_id, room_id, entry_date, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (data_field_id, room_id, entry_date) WHERE room_id IS NOT NULL
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.DataFieldID, entry.RoomID, entry.EntryDate, entry.Value, entry.UpdatedAt)
	return err
}

// ListByField retrieves the entries of a field within a date range, ordered
// by date then room.
func (r *EntryRepository) ListByField(ctx context.Context, fieldID uuid.UUID, from, to time.Time) ([]models.FieldEntry, error) {
	query := `
		SELECT id, data_field_id, room_id, entry_date, value, created_at, updated_at
		FROM field_entries
		WHERE data_field_id = $1 AND entry_date BETWEEN $2 AND $3
		ORDER BY entry_date ASC, room_id ASC NULLS FIRST
	`

	rows, err := r.pool.Query(ctx, query, fieldID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.FieldEntry
	for rows.Next() {
		var e models.FieldEntry
		if err := rows.Scan(&e.ID, &e.DataFieldID, &e.RoomID, &e.EntryDate, &e.Value, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByField returns the total number of entries for a field.
func (r *EntryRepository) CountByField(ctx context.Context, fieldID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM field_entries WHERE data_field_id = $1`, fieldID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
