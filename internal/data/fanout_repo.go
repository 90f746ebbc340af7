package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/technosupport/surveillance-core/internal/surveillance/fanout"
)

// EventEmbeddingModel is the Postgres-backed fanout.EmbeddingStore — stores
// the pre-inference embedding produced for context lookup independent of
// whether it is ever linked to an entity (fan-out item #5).
type EventEmbeddingModel struct {
	DB *sql.DB
}

var _ fanout.EmbeddingStore = EventEmbeddingModel{}

func (m EventEmbeddingModel) StoreEventEmbedding(ctx context.Context, eventID uuid.UUID, embedding []float32) error {
	_, err := m.DB.ExecContext(ctx, `
		INSERT INTO event_embeddings (event_id, embedding, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (event_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
		eventID, encodeEmbedding(embedding),
	)
	return err
}

// EventEnrichmentModel is the Postgres-backed fanout.Persister. Every column
// is updated independently via COALESCE against a nil-marker sentinel, so
// concurrent fan-out tasks touching disjoint fields on the same row never
// clobber each other — the partial-update contract EnrichmentFields names.
type EventEnrichmentModel struct {
	DB *sql.DB
}

var _ fanout.Persister = EventEnrichmentModel{}

func (m EventEnrichmentModel) UpdateEventEnrichment(ctx context.Context, eventID uuid.UUID, fields fanout.EnrichmentFields) error {
	var sets []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if fields.Description != nil {
		sets = append(sets, "description = "+arg(*fields.Description))
	}
	if fields.Recognition != nil {
		sets = append(sets, "recognition_status = "+arg(string(*fields.Recognition)))
	}
	if fields.MatchedEntities != nil {
		ids := make([]string, len(fields.MatchedEntities))
		for i, id := range fields.MatchedEntities {
			ids[i] = id.String()
		}
		sets = append(sets, "matched_entity_ids = "+arg("{"+strings.Join(ids, ",")+"}")+"::uuid[]")
	}
	if fields.Priority != nil {
		sets = append(sets, "priority_notification = "+arg(*fields.Priority))
	}
	if fields.AnomalyScore != nil {
		sets = append(sets, "anomaly_score = "+arg(*fields.AnomalyScore))
	}

	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE events SET %s WHERE id = %s", strings.Join(sets, ", "), arg(eventID))
	_, err := m.DB.ExecContext(ctx, query, args...)
	return err
}

// EntityNamerModel is the Postgres-backed fanout.EntityNamer.
type EntityNamerModel struct {
	DB *sql.DB
}

var _ fanout.EntityNamer = EntityNamerModel{}

func (m EntityNamerModel) Describe(ctx context.Context, id uuid.UUID) (string, bool, bool, error) {
	var name sql.NullString
	var vip, blocked bool
	err := m.DB.QueryRowContext(ctx, `SELECT name, vip, blocked FROM entities WHERE id = $1`, id).Scan(&name, &vip, &blocked)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, false, nil
	}
	if err != nil {
		return "", false, false, err
	}
	return name.String, vip, blocked, nil
}

// ActivityBaselineModel is the Postgres-backed fanout.BaselineStore: a
// per-camera, per-hour-bucket event count used to compute the trailing
// same-hour baseline mean/stddev for anomaly scoring (fan-out item #11).
type ActivityBaselineModel struct {
	DB *sql.DB
}

var _ fanout.BaselineStore = ActivityBaselineModel{}

func hourBucket(at time.Time) time.Time {
	u := at.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), 0, 0, 0, time.UTC)
}

func (m ActivityBaselineModel) IncrementHourCount(ctx context.Context, cameraID uuid.UUID, at time.Time) (int, error) {
	var count int
	err := m.DB.QueryRowContext(ctx, `
		INSERT INTO activity_baseline (camera_id, hour_bucket, event_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (camera_id, hour_bucket) DO UPDATE SET event_count = activity_baseline.event_count + 1
		RETURNING event_count`,
		cameraID, hourBucket(at),
	).Scan(&count)
	return count, err
}

func (m ActivityBaselineModel) SameHourCounts(ctx context.Context, cameraID uuid.UUID, at time.Time, weeks int) ([]int, error) {
	bucket := hourBucket(at)
	rows, err := m.DB.QueryContext(ctx, `
		SELECT event_count FROM activity_baseline
		WHERE camera_id = $1
		  AND hour_bucket = ANY($2::timestamptz[])
		ORDER BY hour_bucket`,
		cameraID, pq.Array(priorWeekBuckets(bucket, weeks)),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var c int
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func priorWeekBuckets(current time.Time, weeks int) []string {
	out := make([]string, 0, weeks)
	for i := 1; i <= weeks; i++ {
		out = append(out, current.AddDate(0, 0, -7*i).Format(time.RFC3339))
	}
	return out
}
