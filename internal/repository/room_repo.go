package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulseboard/kpi-import/internal/models"
)

// RoomRepository handles data access for rooms. The import pipeline only
// looks rooms up; rooms are managed elsewhere.
type RoomRepository struct {
	pool *pgxpool.Pool
}

// NewRoomRepository creates a new room repository.
func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

const roomColumns = `id, org_id, name, created_at`

func scanRoom(row pgx.Row, room *models.Room) error {
	return row.Scan(&room.ID, &room.OrgID, &room.Name, &room.CreatedAt)
}

// FindByName retrieves a room by name, matched case-insensitively after
// trimming, scoped to the org. Returns nil, nil when absent.
func (r *RoomRepository) FindByName(ctx context.Context, orgID uuid.UUID, name string) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE org_id = $1 AND lower(name) = lower(btrim($2))`
	room := &models.Room{}
	err := scanRoom(r.pool.QueryRow(ctx, query, orgID, name), room)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// List retrieves all rooms for an org, ordered by name.
func (r *RoomRepository) List(ctx context.Context, orgID uuid.UUID) ([]models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE org_id = $1 ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var room models.Room
		if err := scanRoom(rows, &room); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}
