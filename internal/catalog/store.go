// Package catalog adapts the pgx repositories to the catalog capability the
// import pipeline consumes.
package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/pulseboard/kpi-import/internal/models"
	"github.com/pulseboard/kpi-import/internal/repository"
)

// Store exposes field and room lookups (and field creation) over the
// persistent catalog.
type Store struct {
	fields *repository.DataFieldRepository
	rooms  *repository.RoomRepository
}

// NewStore creates a catalog store over the given repositories.
func NewStore(fields *repository.DataFieldRepository, rooms *repository.RoomRepository) *Store {
	return &Store{fields: fields, rooms: rooms}
}

// FindFieldByVariable looks up a data field by normalized variable name.
func (s *Store) FindFieldByVariable(ctx context.Context, orgID uuid.UUID, variableName string) (*models.DataField, error) {
	return s.fields.FindByVariable(ctx, orgID, variableName)
}

// CreateField inserts a data field, resolving concurrent-create races to the
// existing row.
func (s *Store) CreateField(ctx context.Context, field *models.DataField) (*models.DataField, error) {
	return s.fields.Create(ctx, field)
}

// FindRoomByName looks up a room by normalized name.
func (s *Store) FindRoomByName(ctx context.Context, orgID uuid.UUID, name string) (*models.Room, error) {
	return s.rooms.FindByName(ctx, orgID, name)
}

// EnsureRoomAssignment records that a field has values in a room.
func (s *Store) EnsureRoomAssignment(ctx context.Context, fieldID, roomID uuid.UUID) error {
	return s.fields.EnsureRoomAssignment(ctx, fieldID, roomID)
}
