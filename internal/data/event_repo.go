package data

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/technosupport/surveillance-core/internal/surveillance/model"
)

// EventModel is the Postgres-backed surveillance event store: the
// synchronous pipeline's single INSERT per qualifying event, plus the
// per-camera counts the fan-out anomaly-scoring stage needs. Follows the
// same plain-struct-over-*sql.DB shape as EntityModel since event creation
// is a single-statement write needing no transaction.
type EventModel struct {
	DB *sql.DB
}

// CreateEvent persists one StoredEvent, generating its ID if unset.
func (m EventModel) CreateEvent(ctx context.Context, evt *model.StoredEvent) error {
	if evt.ID == uuid.Nil {
		evt.ID = uuid.New()
	}

	var fallbackReason, provider, vagueReason, deliveryCarrier, audioTranscription *string
	fallbackReason = evt.FallbackReason
	provider = evt.ProviderUsed
	vagueReason = evt.VagueReason
	deliveryCarrier = evt.DeliveryCarrier
	audioTranscription = evt.AudioTranscription

	_, err := m.DB.ExecContext(ctx, `
		INSERT INTO events (
			id, camera_id, timestamp, description, confidence, ai_confidence,
			low_confidence, vague_reason, objects_detected, thumbnail_path,
			source, smart_detection_type, is_doorbell_ring, analysis_mode,
			frame_count_used, fallback_reason, provider_used, ai_cost,
			delivery_carrier, audio_transcription, description_retry_needed,
			analysis_skipped_reason, reanalysis_count, correlation_group_id
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17, $18,
			$19, $20, $21,
			$22, $23, $24
		)`,
		evt.ID, evt.CameraID, evt.Timestamp, evt.Description, evt.Confidence, evt.AIConfidence,
		evt.LowConfidence, vagueReason, pq.Array(evt.ObjectsDetected), evt.ThumbnailPath,
		string(evt.Source), string(evt.SmartDetectionType), evt.IsDoorbellRing, string(evt.AnalysisMode),
		evt.FrameCountUsed, fallbackReason, provider, evt.AICost,
		deliveryCarrier, audioTranscription, evt.DescriptionRetryNeeded,
		evt.AnalysisSkippedReason, evt.ReanalysisCount, evt.CorrelationGroupID,
	)
	return err
}

// CountSince returns how many events camera_id logged at or after since —
// backs fanout.Input.EventsToday/EventsThisWeek.
func (m EventModel) CountSince(ctx context.Context, cameraID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := m.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events WHERE camera_id = $1 AND timestamp >= $2`,
		cameraID, since,
	).Scan(&count)
	return count, err
}

// GetByID fetches one stored event, including its fan-out enrichment
// columns, for reanalysis or API read paths.
func (m EventModel) GetByID(ctx context.Context, id uuid.UUID) (*model.StoredEvent, error) {
	var e model.StoredEvent
	var vagueReason, fallbackReason, provider, deliveryCarrier, audioTranscription sql.NullString
	var recognition sql.NullString
	var matchedRaw sql.NullString
	var anomalyScore sql.NullFloat64

	err := m.DB.QueryRowContext(ctx, `
		SELECT id, camera_id, timestamp, description, confidence, ai_confidence,
			low_confidence, vague_reason, objects_detected, thumbnail_path,
			source, smart_detection_type, is_doorbell_ring, analysis_mode,
			frame_count_used, fallback_reason, provider_used, ai_cost,
			delivery_carrier, audio_transcription, description_retry_needed,
			analysis_skipped_reason, reanalysis_count, correlation_group_id,
			recognition_status, matched_entity_ids::text, priority_notification, anomaly_score
		FROM events WHERE id = $1`, id,
	).Scan(
		&e.ID, &e.CameraID, &e.Timestamp, &e.Description, &e.Confidence, &e.AIConfidence,
		&e.LowConfidence, &vagueReason, pq.Array(&e.ObjectsDetected), &e.ThumbnailPath,
		&e.Source, &e.SmartDetectionType, &e.IsDoorbellRing, &e.AnalysisMode,
		&e.FrameCountUsed, &fallbackReason, &provider, &e.AICost,
		&deliveryCarrier, &audioTranscription, &e.DescriptionRetryNeeded,
		&e.AnalysisSkippedReason, &e.ReanalysisCount, &e.CorrelationGroupID,
		&recognition, &matchedRaw, &e.PriorityNotification, &anomalyScore,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	if vagueReason.Valid {
		e.VagueReason = &vagueReason.String
	}
	if fallbackReason.Valid {
		e.FallbackReason = &fallbackReason.String
	}
	if provider.Valid {
		e.ProviderUsed = &provider.String
	}
	if deliveryCarrier.Valid {
		e.DeliveryCarrier = &deliveryCarrier.String
	}
	if audioTranscription.Valid {
		e.AudioTranscription = &audioTranscription.String
	}
	if recognition.Valid {
		status := model.RecognitionStatus(recognition.String)
		e.RecognitionStatus = &status
	}
	if anomalyScore.Valid {
		e.AnomalyScore = &anomalyScore.Float64
	}
	if matchedRaw.Valid && matchedRaw.String != "{}" {
		trimmed := strings.Trim(matchedRaw.String, "{}")
		for _, part := range strings.Split(trimmed, ",") {
			if id, err := uuid.Parse(part); err == nil {
				e.MatchedEntityIDs = append(e.MatchedEntityIDs, id)
			}
		}
	}
	return &e, nil
}
