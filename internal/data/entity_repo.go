package data

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/surveillance-core/internal/surveillance/entity"
	"github.com/technosupport/surveillance-core/internal/surveillance/model"
)

// EntityModel is the Postgres-backed entity.Store. Embeddings are stored as
// bytea (little-endian float32, per-component) rather than a pq float array
// so the on-disk layout doesn't depend on a pgvector extension or a specific
// lib/pq array-codec version.
type EntityModel struct {
	DB *sql.DB
}

var _ entity.Store = EntityModel{}

func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	n := len(buf) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

func (m EntityModel) LoadEmbeddings(ctx context.Context) (map[uuid.UUID][]float32, error) {
	rows, err := m.DB.QueryContext(ctx, `SELECT id, embedding FROM entities WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]float32)
	for rows.Next() {
		var id uuid.UUID
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		out[id] = decodeEmbedding(raw)
	}
	return out, rows.Err()
}

func (m EntityModel) EventTimestamp(ctx context.Context, eventID uuid.UUID) (time.Time, error) {
	var ts time.Time
	err := m.DB.QueryRowContext(ctx, `SELECT timestamp FROM events WHERE id = $1`, eventID).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrRecordNotFound
	}
	return ts, err
}

func (m EntityModel) CreateEntity(ctx context.Context, in entity.CreateEntityInput) error {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var color, make_, model_, signature *string
	if in.Vehicle != nil {
		color, make_, model_, signature = in.Vehicle.Color, in.Vehicle.Make, in.Vehicle.Model, in.Vehicle.Signature
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entities (id, type, embedding, first_seen, last_seen, occurrence_count, color, make, veh_model, signature)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7, $8, $9)`,
		in.ID, string(in.Type), encodeEmbedding(in.Embedding), in.FirstSeen, in.LastSeen, color, make_, model_, signature,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entity_events (entity_id, event_id, similarity_score, created_at)
		VALUES ($1, $2, 1.0, NOW())`,
		in.ID, in.EventID,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (m EntityModel) UpdateOccurrence(ctx context.Context, entityID, eventID uuid.UUID, score float64, seenAt time.Time) (model.EntityMatchResult, error) {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.EntityMatchResult{}, err
	}
	defer tx.Rollback()

	var result model.EntityMatchResult
	var name sql.NullString
	var firstSeen, lastSeen time.Time
	var occurrence int
	var entType string

	err = tx.QueryRowContext(ctx, `
		UPDATE entities
		SET last_seen = GREATEST(last_seen, $2), occurrence_count = occurrence_count + 1
		WHERE id = $1
		RETURNING type, name, first_seen, last_seen, occurrence_count`,
		entityID, seenAt,
	).Scan(&entType, &name, &firstSeen, &lastSeen, &occurrence)
	if errors.Is(err, sql.ErrNoRows) {
		return model.EntityMatchResult{}, ErrRecordNotFound
	}
	if err != nil {
		return model.EntityMatchResult{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entity_events (entity_id, event_id, similarity_score, created_at)
		VALUES ($1, $2, $3, NOW())`,
		entityID, eventID, score,
	)
	if err != nil {
		return model.EntityMatchResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.EntityMatchResult{}, err
	}

	result = model.EntityMatchResult{
		EntityID:        entityID,
		EntityType:      model.EntityType(entType),
		FirstSeenAt:     firstSeen,
		LastSeenAt:      lastSeen,
		OccurrenceCount: occurrence,
		SimilarityScore: score,
		IsNew:           false,
	}
	if name.Valid {
		result.Name = &name.String
	}
	return result, nil
}

func (m EntityModel) GetByID(ctx context.Context, id uuid.UUID) (*model.Entity, error) {
	var e model.Entity
	var entType string
	var name, color, make_, model_, signature sql.NullString
	var embeddingRaw []byte

	err := m.DB.QueryRowContext(ctx, `
		SELECT id, type, name, embedding, first_seen, last_seen, occurrence_count, vip, blocked, color, make, veh_model, signature
		FROM entities WHERE id = $1`, id,
	).Scan(&e.ID, &entType, &name, &embeddingRaw, &e.FirstSeen, &e.LastSeen, &e.OccurrenceCount, &e.VIP, &e.Blocked, &color, &make_, &model_, &signature)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e.Type = model.EntityType(entType)
	if embeddingRaw != nil {
		e.Embedding = decodeEmbedding(embeddingRaw)
	}
	if name.Valid {
		e.Name = &name.String
	}
	if color.Valid {
		e.Color = &color.String
	}
	if make_.Valid {
		e.Make = &make_.String
	}
	if model_.Valid {
		e.VehModel = &model_.String
	}
	if signature.Valid {
		e.Signature = &signature.String
	}
	return &e, nil
}

func (m EntityModel) FindByVehicleSignature(ctx context.Context, signature string) (*uuid.UUID, error) {
	var id uuid.UUID
	err := m.DB.QueryRowContext(ctx, `SELECT id FROM entities WHERE signature = $1 AND type = $2 LIMIT 1`,
		signature, string(model.EntityVehicle)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (m EntityModel) RecordAdjustment(ctx context.Context, adj model.EntityAdjustment) error {
	_, err := m.DB.ExecContext(ctx, `
		INSERT INTO entity_adjustments (id, action, old_entity_id, new_entity_id, event_id, description_snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		adj.ID, string(adj.Action), adj.OldEntityID, adj.NewEntityID, adj.EventID, adj.DescriptionSnapshot, adj.CreatedAt,
	)
	return err
}
