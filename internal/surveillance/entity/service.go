package entity

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/surveillance-core/internal/surveillance/model"
)

// DefaultThreshold is the minimum cosine similarity for a match, ported from
// entity_service.py's DEFAULT_THRESHOLD.
const DefaultThreshold = 0.75

// SignatureMatchScore is the similarity recorded when a vehicle is matched by
// signature rather than embedding (the Python source hard-codes 0.95 here —
// high confidence, but distinct from a perfect embedding match).
const SignatureMatchScore = 0.95

// Service matches an embedding against known entities, creating new ones
// when nothing clears the threshold. Mirrors EntityService in
// original_source/entity_service.py.
type Service struct {
	Store     Store
	Cache     *Cache
	Threshold float64
	Logger    *log.Logger
}

func NewService(store Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{Store: store, Cache: NewCache(), Threshold: DefaultThreshold, Logger: logger}
}

func (s *Service) threshold() float64 {
	if s.Threshold > 0 {
		return s.Threshold
	}
	return DefaultThreshold
}

func (s *Service) ensureCacheLoaded(ctx context.Context) error {
	if s.Cache.Loaded() {
		return nil
	}
	rows, err := s.Store.LoadEmbeddings(ctx)
	if err != nil {
		return err
	}
	valid := make(map[uuid.UUID][]float32, len(rows))
	for id, emb := range rows {
		if len(emb) != EmbeddingDim {
			s.Logger.Printf("[DEBUG] Entity: skipping entity %s with malformed embedding (len=%d)", id, len(emb))
			continue
		}
		valid[id] = emb
	}
	s.Cache.Fill(valid)
	return nil
}

// MatchOrCreate matches embedding against the cache, updating the matched
// entity's occurrence count or creating a new entity, and always links the
// event. Mirrors match_or_create_entity.
func (s *Service) MatchOrCreate(ctx context.Context, eventID uuid.UUID, embedding []float32, entityType model.EntityType) (model.EntityMatchResult, error) {
	if err := s.ensureCacheLoaded(ctx); err != nil {
		return model.EntityMatchResult{}, err
	}

	seenAt := s.eventTimestamp(ctx, eventID)

	if s.Cache.Empty() {
		return s.createNew(ctx, eventID, embedding, entityType, seenAt, nil)
	}

	ids, embeddings := s.Cache.Snapshot()
	scores := BatchCosineSimilarity(embedding, embeddings)
	idx, best := BestMatch(scores, s.threshold())

	if idx < 0 {
		s.Logger.Printf("[INFO] Entity: no match for event %s (best score %.4f below threshold %.2f)", eventID, maxScore(scores), s.threshold())
		return s.createNew(ctx, eventID, embedding, entityType, seenAt, nil)
	}

	result, err := s.Store.UpdateOccurrence(ctx, ids[idx], eventID, best, seenAt)
	if err != nil {
		return model.EntityMatchResult{}, err
	}
	s.Logger.Printf("[INFO] Entity: matched event %s to entity %s (score %.4f)", eventID, ids[idx], best)
	return result, nil
}

// MatchOnly performs a read-only lookup against the cache without creating
// links or entities — used to build AI-prompt context before the event is
// persisted. Mirrors match_entity_only.
func (s *Service) MatchOnly(ctx context.Context, embedding []float32) (*model.EntityMatchResult, error) {
	if err := s.ensureCacheLoaded(ctx); err != nil {
		return nil, err
	}
	if s.Cache.Empty() {
		return nil, nil
	}

	ids, embeddings := s.Cache.Snapshot()
	scores := BatchCosineSimilarity(embedding, embeddings)
	idx, best := BestMatch(scores, s.threshold())
	if idx < 0 {
		return nil, nil
	}

	ent, err := s.Store.GetByID(ctx, ids[idx])
	if err != nil {
		return nil, err
	}
	if ent == nil {
		s.Logger.Printf("[WARN] Entity: entity %s in cache but missing from store", ids[idx])
		return nil, nil
	}

	return &model.EntityMatchResult{
		EntityID:        ent.ID,
		EntityType:      ent.Type,
		Name:            ent.Name,
		FirstSeenAt:     ent.FirstSeen,
		LastSeenAt:      ent.LastSeen,
		OccurrenceCount: ent.OccurrenceCount,
		SimilarityScore: best,
		IsNew:           false,
	}, nil
}

// MatchOrCreateVehicle matches or creates a vehicle entity, trying
// signature-based matching first (so vehicles sharing color/make/model
// group together even when embeddings drift slightly) before falling back
// to embedding similarity. Mirrors match_or_create_vehicle_entity.
func (s *Service) MatchOrCreateVehicle(ctx context.Context, eventID uuid.UUID, embedding []float32, description string) (model.EntityMatchResult, error) {
	seenAt := s.eventTimestamp(ctx, eventID)

	var vehicleInfo *model.VehicleEntityInfo
	if description != "" {
		vehicleInfo = ExtractVehicleEntity(description)
	}

	if vehicleInfo != nil && vehicleInfo.Signature != nil {
		existingID, err := s.Store.FindByVehicleSignature(ctx, *vehicleInfo.Signature)
		if err != nil {
			return model.EntityMatchResult{}, err
		}
		if existingID != nil {
			result, err := s.Store.UpdateOccurrence(ctx, *existingID, eventID, SignatureMatchScore, seenAt)
			if err != nil {
				return model.EntityMatchResult{}, err
			}
			s.Logger.Printf("[INFO] Entity: vehicle matched by signature %q -> %s", *vehicleInfo.Signature, *existingID)
			return result, nil
		}
	}

	if err := s.ensureCacheLoaded(ctx); err != nil {
		return model.EntityMatchResult{}, err
	}

	if s.Cache.Empty() {
		return s.createNew(ctx, eventID, embedding, model.EntityVehicle, seenAt, vehicleInfo)
	}

	ids, embeddings := s.Cache.Snapshot()
	scores := BatchCosineSimilarity(embedding, embeddings)
	idx, best := BestMatch(scores, s.threshold())

	if idx < 0 {
		return s.createNew(ctx, eventID, embedding, model.EntityVehicle, seenAt, vehicleInfo)
	}

	result, err := s.Store.UpdateOccurrence(ctx, ids[idx], eventID, best, seenAt)
	if err != nil {
		return model.EntityMatchResult{}, err
	}
	s.Logger.Printf("[INFO] Entity: vehicle matched by embedding for event %s -> %s (score %.4f)", eventID, ids[idx], best)
	return result, nil
}

func (s *Service) createNew(ctx context.Context, eventID uuid.UUID, embedding []float32, entityType model.EntityType, seenAt time.Time, vehicleInfo *model.VehicleEntityInfo) (model.EntityMatchResult, error) {
	id := uuid.New()
	err := s.Store.CreateEntity(ctx, CreateEntityInput{
		ID:        id,
		Type:      entityType,
		Embedding: embedding,
		FirstSeen: seenAt,
		LastSeen:  seenAt,
		EventID:   eventID,
		Vehicle:   vehicleInfo,
	})
	if err != nil {
		return model.EntityMatchResult{}, err
	}
	s.Cache.Put(id, embedding)
	return model.EntityMatchResult{
		EntityID:        id,
		EntityType:      entityType,
		FirstSeenAt:     seenAt,
		LastSeenAt:      seenAt,
		OccurrenceCount: 1,
		SimilarityScore: 1.0,
		IsNew:           true,
	}, nil
}

func (s *Service) eventTimestamp(ctx context.Context, eventID uuid.UUID) time.Time {
	ts, err := s.Store.EventTimestamp(ctx, eventID)
	if err != nil {
		return time.Now().UTC()
	}
	return ts
}

// RecordAdjustment appends an immutable admin mutation to the entity graph,
// kept for offline training per spec.
func (s *Service) RecordAdjustment(ctx context.Context, adj model.EntityAdjustment) error {
	if adj.ID == uuid.Nil {
		adj.ID = uuid.New()
	}
	if adj.CreatedAt.IsZero() {
		adj.CreatedAt = time.Now().UTC()
	}
	if err := s.Store.RecordAdjustment(ctx, adj); err != nil {
		return err
	}
	s.Cache.Invalidate()
	return nil
}
