package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/surveillance-core/internal/surveillance/model"
)

// Store is the persistence boundary consumed by Service — implemented over
// Postgres in internal/data, and fakeable in tests the way the teacher's repo
// interfaces (data.NVRRepository, data.CameraRepository) are.
type Store interface {
	// LoadEmbeddings returns every recognized entity's reference embedding,
	// skipping malformed/wrong-dimension rows (the caller logs the skip).
	LoadEmbeddings(ctx context.Context) (map[uuid.UUID][]float32, error)

	EventTimestamp(ctx context.Context, eventID uuid.UUID) (time.Time, error)

	CreateEntity(ctx context.Context, in CreateEntityInput) error
	UpdateOccurrence(ctx context.Context, entityID uuid.UUID, eventID uuid.UUID, score float64, seenAt time.Time) (model.EntityMatchResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Entity, error)
	FindByVehicleSignature(ctx context.Context, signature string) (*uuid.UUID, error)
	RecordAdjustment(ctx context.Context, adj model.EntityAdjustment) error
}

// CreateEntityInput is the row Service.createNew hands to the store.
type CreateEntityInput struct {
	ID        uuid.UUID
	Type      model.EntityType
	Embedding []float32
	FirstSeen time.Time
	LastSeen  time.Time
	EventID   uuid.UUID
	Vehicle   *model.VehicleEntityInfo
}
