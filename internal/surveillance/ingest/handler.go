package ingest

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/technosupport/surveillance-core/internal/surveillance/model"
)

// Enqueuer accepts a fully filtered, deduplicated ProcessingEvent. The
// caller (queue.Processor) still applies the cooldown gate at enqueue
// time, per spec.md §4.1.
type Enqueuer interface {
	EnqueueWithCooldown(evt *model.ProcessingEvent, cooldown time.Duration) bool
}

// Handler is the per-controller subscription entry point: parse, filter,
// dedup, then hand off to the queue. Modeled on NVRPoller.pollNVR's
// per-event loop (internal/nvr/event_poller.go), generalized from a
// polling fetch to a push-style subscription callback.
type Handler struct {
	Lookup   CameraLookup
	Dedup    *Dedup
	SmartIDs *SmartDetectIDCache
	Queue    Enqueuer
}

// NewHandler constructs a Handler with fresh dedup caches.
func NewHandler(lookup CameraLookup, queue Enqueuer) *Handler {
	return &Handler{
		Lookup:   lookup,
		Dedup:    NewDedup(10_000, 2*time.Minute),
		SmartIDs: NewSmartDetectIDCache(10_000),
		Queue:    queue,
	}
}

// HandleProtect processes one raw state transition from a protect-style
// controller subscription.
func (h *Handler) HandleProtect(raw RawState) {
	cam, ok := h.Lookup.ByProtectID(raw.CameraSourceID)
	if !ok {
		log.Printf("[DEBUG] ingest: unknown controller source id %s, discarding", raw.CameraSourceID)
		return
	}

	types := ExtractTypes(raw, cam.IsDoorbell)
	if len(types) == 0 {
		log.Printf("[DEBUG] ingest: no event types extracted for camera %s, discarding", cam.ID)
		return
	}

	if !cam.Enabled || cam.Source != model.SourceProtect {
		log.Printf("[DEBUG] ingest: camera %s not eligible (enabled=%v source=%s), discarding", cam.ID, cam.Enabled, cam.Source)
		return
	}

	passed := PassesFilter(cam, types)
	if len(passed) == 0 {
		log.Printf("[DEBUG] ingest: camera %s filtered out all types %v, discarding", cam.ID, types)
		return
	}

	occurredAt := raw.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	for _, dt := range passed {
		if raw.LastSmartDetectEventIDs != nil {
			if controllerID, ok := raw.LastSmartDetectEventIDs[string(dt)]; ok {
				if h.SmartIDs.IsDuplicate(cam.ID.String(), dt, controllerID) {
					continue
				}
			}
		}

		key := BuildDedupKey(cam.ID.String(), string(dt), occurredAt)
		if h.Dedup.IsDuplicate(key) {
			continue
		}

		evt := &model.ProcessingEvent{
			EventID:        uuid.New(),
			CameraID:       cam.ID,
			CameraName:     cam.Name,
			Timestamp:      occurredAt,
			DetectedTypes:  passed,
			SmartDetection: dt,
			EnqueuedAt:     time.Now(),
		}

		cooldown := cam.MotionCooldown
		if cooldown <= 0 {
			cooldown = 60 * time.Second
		}
		h.Queue.EnqueueWithCooldown(evt, cooldown)
	}
}

// HandleFrame processes one in-memory frame from an RTSP/USB source,
// which carries no clip and whose detected types come pre-extracted from
// the transport layer (out of scope per spec.md §1).
func (h *Handler) HandleFrame(cam *model.Camera, frame []byte, detected []model.DetectionType, ts time.Time) {
	passed := PassesFilter(cam, detected)
	if len(passed) == 0 {
		return
	}
	for _, dt := range passed {
		key := BuildDedupKey(cam.ID.String(), string(dt), ts)
		if h.Dedup.IsDuplicate(key) {
			continue
		}
		evt := &model.ProcessingEvent{
			EventID:        uuid.New(),
			CameraID:       cam.ID,
			CameraName:     cam.Name,
			Timestamp:      ts,
			DetectedTypes:  passed,
			SmartDetection: dt,
			Frame:          frame,
			EnqueuedAt:     time.Now(),
		}
		cooldown := cam.MotionCooldown
		if cooldown <= 0 {
			cooldown = 60 * time.Second
		}
		h.Queue.EnqueueWithCooldown(evt, cooldown)
	}
}
