// Package fanout spawns the eleven detached, catch-all-recovered tasks a
// worker fires after persisting one event — spec.md §4.8. None of these
// tasks may block the worker; each owns its own short-lived database
// session and failures are caught, counted, and dropped, never escalated.
//
// Grounded on internal/nvr/event_poller.go's pollNVR: a bounded-goroutine
// fan-out with a deferred recover per unit of work. Here every item always
// runs (no semaphore — fan-out tasks are cheap and bounded in number per
// event, unlike the poller's per-NVR fetches) but the recover/logging shape
// is the same.
package fanout

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/surveillance-core/internal/metrics"
	"github.com/technosupport/surveillance-core/internal/surveillance/bridge"
	"github.com/technosupport/surveillance-core/internal/surveillance/bus"
	"github.com/technosupport/surveillance-core/internal/surveillance/costing"
	"github.com/technosupport/surveillance-core/internal/surveillance/entity"
	"github.com/technosupport/surveillance-core/internal/surveillance/model"
	"github.com/technosupport/surveillance-core/internal/surveillance/storage"
)

// Notifier dispatches a push notification. The wire format (APNs/FCM) is
// out of scope; this is the contract the dispatcher sees.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Notification is the minimal payload item #4 requires.
type Notification struct {
	CameraID     uuid.UUID
	EventID      uuid.UUID
	Description  string
	ThumbnailURL string
	CollapseKey  string // camera_id, per spec
	Priority     bool
}

// Recognizer performs face and/or vehicle recognition against one event's
// evidence, returning matched entity ids. Feature-gated per-flag by Flags.
type Recognizer interface {
	RecognizeFaces(ctx context.Context, evt *model.ProcessingEvent) ([]uuid.UUID, error)
	RecognizeVehicle(ctx context.Context, evt *model.ProcessingEvent, description string) ([]uuid.UUID, error)
}

// Flags gates the privacy-sensitive recognition stages, per spec.md §6
// "face_recognition_enabled"/"vehicle_recognition_enabled" settings.
type Flags struct {
	FaceRecognitionEnabled    bool
	VehicleRecognitionEnabled bool
}

// EntityNamer resolves an entity id to a display name and VIP/blocked
// status, for item #9's description rewrite.
type EntityNamer interface {
	Describe(ctx context.Context, id uuid.UUID) (name string, vip bool, blocked bool, err error)
}

// EmbeddingStore persists the pre-inference embedding produced for context
// lookup, keyed by event, independent of whether it ends up linked to an
// entity. Item #5.
type EmbeddingStore interface {
	StoreEventEmbedding(ctx context.Context, eventID uuid.UUID, embedding []float32) error
}

// Persister commits the fan-out stages' side effects that mutate the
// stored event row (recognition status, matched entities, anomaly score).
// Kept narrow and separate from internal/data so this package has no
// direct database dependency.
type Persister interface {
	UpdateEventEnrichment(ctx context.Context, eventID uuid.UUID, fields EnrichmentFields) error
}

// EnrichmentFields carries only the columns one fan-out task touches. A nil
// pointer field means "leave this column alone" — the persistence layer
// does a partial update, never a full-row overwrite, so independent
// detached tasks never clobber each other's writes to the same row.
type EnrichmentFields struct {
	Description     *string
	Recognition     *model.RecognitionStatus
	MatchedEntities []uuid.UUID
	Priority        *bool
	AnomalyScore    *float64
}

// Deps bundles every downstream collaborator a fan-out run may dispatch to.
// Any field may be nil; a nil collaborator makes its stage a no-op instead
// of a panic (mirrors spec.md's "skip if bus not connected" best-effort
// framing, generalized to every optional stage).
type Deps struct {
	Bridge     *bridge.Bridge
	Bus        *bus.Bus
	Entities   *entity.Service
	Embeddings EmbeddingStore
	Storage    storage.ObjectStore
	CostAlert  costing.AlertChecker
	Notifier   Notifier
	Recognizer Recognizer
	Namer      EntityNamer
	Baseline   *Baseline
	Persist    Persister
	Flags      Flags
	Logger     *log.Logger
}

// Input is everything one fan-out run needs about the event it follows.
type Input struct {
	Event          *model.ProcessingEvent
	Stored         *model.StoredEvent
	Embedding      []float32 // pre-inference embedding, nil if none was produced
	EventsToday    int
	EventsThisWeek int
}

func (d *Deps) logger() *log.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return log.Default()
}

// category labels, matching the eleven spec.md §4.8 items in order.
const (
	catSensor       = "sensor"
	catBusEvent     = "bus_event"
	catBusStatus    = "bus_status"
	catNotification = "notification"
	catEmbedding    = "embedding"
	catEntityMatch  = "entity_match"
	catCostAlert    = "cost_alert"
	catRecognition  = "recognition"
	catEntityAlert  = "entity_alert"
	catAudio        = "audio"
	catAnomaly      = "anomaly"
)

// Run spawns all eleven fan-out tasks as detached goroutines and returns
// immediately — the worker must never wait on it. Each task is independent:
// a panic or error in one never affects the others.
func (d *Deps) Run(in Input) {
	tasks := []struct {
		category string
		fn       func(ctx context.Context)
	}{
		{catSensor, func(ctx context.Context) { d.runSensors(ctx, in) }},
		{catBusEvent, func(ctx context.Context) { d.runBusEvent(ctx, in) }},
		{catBusStatus, func(ctx context.Context) { d.runBusStatus(ctx, in) }},
		{catNotification, func(ctx context.Context) { d.runNotification(ctx, in) }},
		{catEmbedding, func(ctx context.Context) { d.runEmbeddingStore(ctx, in) }},
		{catEntityMatch, func(ctx context.Context) { d.runEntityMatch(ctx, in) }},
		{catCostAlert, func(ctx context.Context) { d.runCostAlert(ctx, in) }},
		// Item #8 (recognition) and item #9 (entity-alert enrichment) share
		// one detached task: #9 is defined entirely in terms of #8's
		// output, so running them as independent goroutines would mean
		// either a second recognition pass or a channel hand-off between
		// two fire-and-forget tasks — both worse than one task that
		// increments both categories' failure counters.
		{catEntityAlert, func(ctx context.Context) { d.runEntityAlert(ctx, in) }},
		{catAudio, func(ctx context.Context) { d.runAudio(ctx, in) }},
		{catAnomaly, func(ctx context.Context) { d.runAnomaly(ctx, in) }},
	}

	for _, t := range tasks {
		go d.dispatch(t.category, t.fn)
	}
}

// dispatch wraps one fan-out task in its own timeout context, catch-all
// recover, and failure counter — the per-call isolation spec.md §5 names.
func (d *Deps) dispatch(category string, fn func(ctx context.Context)) {
	start := time.Now()
	defer func() {
		metrics.RecordFanoutDuration(category, float64(time.Since(start).Milliseconds()))
		if r := recover(); r != nil {
			metrics.RecordFanoutFailure(category)
			d.logger().Printf("[ERROR] fanout: task %s panicked: %v", category, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	fn(ctx)
}

func (d *Deps) fail(category string, err error) {
	if err == nil {
		return
	}
	metrics.RecordFanoutFailure(category)
	d.logger().Printf("[ERROR] fanout: %s: %v", category, err)
}
