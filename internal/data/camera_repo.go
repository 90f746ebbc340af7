package data

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/technosupport/surveillance-core/internal/surveillance/ingest"
	"github.com/technosupport/surveillance-core/internal/surveillance/model"
)

// SurveillanceCameraModel is the Postgres-backed ingest.CameraLookup: the
// pipeline's view of a camera, distinct from the REST-facing CameraModel in
// cameras.go (different schema, different consumer — that one serves the
// user-facing CRUD surface, this one serves the ingestion hot path). Caches
// the full table in memory and refreshes on a timer, the same
// read-mostly-snapshot shape internal/nvr/event_poller.go uses for its NVR
// list rather than querying per event.
type SurveillanceCameraModel struct {
	DB *sql.DB

	mu      sync.RWMutex
	byMAC   map[string]*model.Camera
	byID    map[uuid.UUID]*model.Camera
	loaded  bool
}

var _ ingest.CameraLookup = (*SurveillanceCameraModel)(nil)

// ByProtectID resolves a controller-reported source id (the camera's MAC,
// for protect-style controllers) to a Camera. Loads the cache on first use.
func (m *SurveillanceCameraModel) ByProtectID(sourceID string) (*model.Camera, bool) {
	m.mu.RLock()
	if m.loaded {
		cam, ok := m.byMAC[sourceID]
		m.mu.RUnlock()
		return cam, ok
	}
	m.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Refresh(ctx); err != nil {
		log.Printf("[ERROR] data: camera cache refresh failed: %v", err)
		return nil, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	cam, ok := m.byMAC[sourceID]
	return cam, ok
}

// ByID resolves a camera by its primary key, consulting the cache first.
func (m *SurveillanceCameraModel) ByID(id uuid.UUID) (*model.Camera, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cam, ok := m.byID[id]
	return cam, ok
}

// Refresh reloads the full camera table into the in-memory cache.
func (m *SurveillanceCameraModel) Refresh(ctx context.Context) error {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT id, tenant_id, name, source, enabled, detection_filter, mode,
			prompt_override, is_doorbell, motion_cooldown_seconds, audio_enabled,
			protect_nvr_id, protect_mac
		FROM surveillance_cameras`)
	if err != nil {
		return err
	}
	defer rows.Close()

	byMAC := make(map[string]*model.Camera)
	byID := make(map[uuid.UUID]*model.Camera)
	for rows.Next() {
		cam := &model.Camera{}
		var source, mode string
		var filterTypes []string
		var cooldownSeconds int
		var protectNVRID, protectMAC sql.NullString

		if err := rows.Scan(
			&cam.ID, &cam.TenantID, &cam.Name, &source, &cam.Enabled, pq.Array(&filterTypes), &mode,
			&cam.PromptOverride, &cam.IsDoorbell, &cooldownSeconds, &cam.AudioEnabled,
			&protectNVRID, &protectMAC,
		); err != nil {
			return err
		}

		cam.Source = model.SourceKind(source)
		cam.Mode = model.AnalysisMode(mode)
		cam.MotionCooldown = time.Duration(cooldownSeconds) * time.Second
		if len(filterTypes) > 0 {
			cam.Filter = make(map[model.DetectionType]bool, len(filterTypes))
			for _, t := range filterTypes {
				cam.Filter[model.DetectionType(t)] = true
			}
		}
		if protectNVRID.Valid {
			if id, err := uuid.Parse(protectNVRID.String); err == nil {
				cam.ProtectNVRID = id
			}
		}
		if protectMAC.Valid {
			cam.ProtectMAC = protectMAC.String
			byMAC[protectMAC.String] = cam
		}
		byID[cam.ID] = cam
	}
	if err := rows.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.byMAC = byMAC
	m.byID = byID
	m.loaded = true
	m.mu.Unlock()
	return nil
}
