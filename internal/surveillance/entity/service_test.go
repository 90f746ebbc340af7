package entity

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/surveillance-core/internal/surveillance/model"
)

type fakeStore struct {
	embeddings map[uuid.UUID][]float32
	entities   map[uuid.UUID]*model.Entity
	signatures map[string]uuid.UUID
	adjustments []model.EntityAdjustment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		embeddings: map[uuid.UUID][]float32{},
		entities:   map[uuid.UUID]*model.Entity{},
		signatures: map[string]uuid.UUID{},
	}
}

func (f *fakeStore) LoadEmbeddings(ctx context.Context) (map[uuid.UUID][]float32, error) {
	out := make(map[uuid.UUID][]float32, len(f.embeddings))
	for k, v := range f.embeddings {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) EventTimestamp(ctx context.Context, eventID uuid.UUID) (time.Time, error) {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

func (f *fakeStore) CreateEntity(ctx context.Context, in CreateEntityInput) error {
	f.embeddings[in.ID] = in.Embedding
	ent := &model.Entity{
		ID:              in.ID,
		Type:            in.Type,
		Embedding:       in.Embedding,
		FirstSeen:       in.FirstSeen,
		LastSeen:        in.LastSeen,
		OccurrenceCount: 1,
	}
	if in.Vehicle != nil {
		ent.Color = in.Vehicle.Color
		ent.Make = in.Vehicle.Make
		ent.VehModel = in.Vehicle.Model
		ent.Signature = in.Vehicle.Signature
		if in.Vehicle.Signature != nil {
			f.signatures[*in.Vehicle.Signature] = in.ID
		}
	}
	f.entities[in.ID] = ent
	return nil
}

func (f *fakeStore) UpdateOccurrence(ctx context.Context, entityID, eventID uuid.UUID, score float64, seenAt time.Time) (model.EntityMatchResult, error) {
	ent := f.entities[entityID]
	ent.OccurrenceCount++
	ent.LastSeen = seenAt
	return model.EntityMatchResult{
		EntityID:        ent.ID,
		EntityType:      ent.Type,
		Name:            ent.Name,
		FirstSeenAt:     ent.FirstSeen,
		LastSeenAt:      ent.LastSeen,
		OccurrenceCount: ent.OccurrenceCount,
		SimilarityScore: score,
		IsNew:           false,
	}, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Entity, error) {
	return f.entities[id], nil
}

func (f *fakeStore) FindByVehicleSignature(ctx context.Context, signature string) (*uuid.UUID, error) {
	if id, ok := f.signatures[signature]; ok {
		return &id, nil
	}
	return nil, nil
}

func (f *fakeStore) RecordAdjustment(ctx context.Context, adj model.EntityAdjustment) error {
	f.adjustments = append(f.adjustments, adj)
	return nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestMatchOrCreateFirstEntityIsAlwaysNew(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testLogger())

	result, err := svc.MatchOrCreate(context.Background(), uuid.New(), []float32{1, 0, 0}, model.EntityPerson)
	require.NoError(t, err)
	require.True(t, result.IsNew)
	require.Equal(t, 1, result.OccurrenceCount)
}

func TestMatchOrCreateReusesEntityAboveThreshold(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testLogger())
	ctx := context.Background()

	first, err := svc.MatchOrCreate(ctx, uuid.New(), []float32{1, 0, 0}, model.EntityPerson)
	require.NoError(t, err)

	second, err := svc.MatchOrCreate(ctx, uuid.New(), []float32{1, 0, 0}, model.EntityPerson)
	require.NoError(t, err)
	require.False(t, second.IsNew)
	require.Equal(t, first.EntityID, second.EntityID)
	require.Equal(t, 2, second.OccurrenceCount)
}

func TestMatchOrCreateCreatesNewWhenBelowThreshold(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testLogger())
	ctx := context.Background()

	first, err := svc.MatchOrCreate(ctx, uuid.New(), []float32{1, 0, 0}, model.EntityPerson)
	require.NoError(t, err)

	second, err := svc.MatchOrCreate(ctx, uuid.New(), []float32{0, 1, 0}, model.EntityPerson)
	require.NoError(t, err)
	require.True(t, second.IsNew)
	require.NotEqual(t, first.EntityID, second.EntityID)
}

func TestMatchOnlyDoesNotCreateOrMutate(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testLogger())
	ctx := context.Background()

	result, err := svc.MatchOnly(ctx, []float32{1, 0, 0})
	require.NoError(t, err)
	require.Nil(t, result)
	require.Empty(t, store.entities)
}

func TestMatchOnlyReturnsExistingMatchReadOnly(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testLogger())
	ctx := context.Background()

	created, err := svc.MatchOrCreate(ctx, uuid.New(), []float32{1, 0, 0}, model.EntityPerson)
	require.NoError(t, err)

	result, err := svc.MatchOnly(ctx, []float32{1, 0, 0})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, created.EntityID, result.EntityID)
	require.Equal(t, 1, result.OccurrenceCount) // unchanged by the read-only lookup
}

func TestMatchOrCreateVehiclePrefersSignatureOverEmbedding(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testLogger())
	ctx := context.Background()

	first, err := svc.MatchOrCreateVehicle(ctx, uuid.New(), []float32{1, 0, 0}, "A white Toyota Camry pulled in")
	require.NoError(t, err)
	require.True(t, first.IsNew)

	// A completely different embedding, but the same vehicle signature,
	// must still match by signature rather than creating a new entity.
	second, err := svc.MatchOrCreateVehicle(ctx, uuid.New(), []float32{0, 1, 0}, "The white Toyota Camry left again")
	require.NoError(t, err)
	require.False(t, second.IsNew)
	require.Equal(t, first.EntityID, second.EntityID)
	require.InDelta(t, SignatureMatchScore, second.SimilarityScore, 1e-9)
}

func TestMatchOrCreateVehicleFallsBackToEmbeddingWithoutDescription(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testLogger())
	ctx := context.Background()

	first, err := svc.MatchOrCreateVehicle(ctx, uuid.New(), []float32{1, 0, 0}, "")
	require.NoError(t, err)
	require.True(t, first.IsNew)

	second, err := svc.MatchOrCreateVehicle(ctx, uuid.New(), []float32{1, 0, 0}, "")
	require.NoError(t, err)
	require.False(t, second.IsNew)
	require.Equal(t, first.EntityID, second.EntityID)
}

func TestRecordAdjustmentInvalidatesCache(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testLogger())
	ctx := context.Background()

	_, err := svc.MatchOrCreate(ctx, uuid.New(), []float32{1, 0, 0}, model.EntityPerson)
	require.NoError(t, err)
	require.True(t, svc.Cache.Loaded())

	err = svc.RecordAdjustment(ctx, model.EntityAdjustment{Action: model.AdjustUnlink})
	require.NoError(t, err)
	require.False(t, svc.Cache.Loaded())
	require.Len(t, store.adjustments, 1)
}
