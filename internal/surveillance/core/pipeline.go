package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/surveillance-core/internal/surveillance/evidence"
	"github.com/technosupport/surveillance-core/internal/surveillance/fanout"
	"github.com/technosupport/surveillance-core/internal/surveillance/model"
	"github.com/technosupport/surveillance-core/internal/surveillance/queue"
	"github.com/technosupport/surveillance-core/internal/surveillance/storage"
)

// CameraResolver looks up the full Camera a ProcessingEvent references,
// since queue.Handler only receives the event, not the camera — mirrors
// ingest.CameraLookup but keyed by primary id instead of controller source
// id (the pipeline already knows CameraID by the time it reaches here).
type CameraResolver interface {
	ByID(id uuid.UUID) (*model.Camera, bool)
}

var _ queue.Handler = (*Pipeline)(nil)

// Pipeline implements queue.Handler: the synchronous half of one event's
// processing — evidence acquisition, AI dispatch, persistence — followed
// by handing off to the detached fanout.Run for everything that may block
// or fail independently. Grounded on cmd/ai-service/main.go's per-job
// "fetch → infer → persist" handler shape, generalized from its flat
// function into a method so it can close over Core's collaborators.
type Pipeline struct {
	Core *Core
}

func (p *Pipeline) logger() *log.Logger {
	return p.Core.logger()
}

// Process runs one event end to end. Errors returned here are classified
// (model.KindXxx) so queue.Processor's failure counters stay meaningful.
func (p *Pipeline) Process(ctx context.Context, evt *model.ProcessingEvent) error {
	cam, ok := p.Core.cameraByID(evt.CameraID)
	if !ok {
		return model.NewError(model.KindIngestParse, fmt.Errorf("camera %s not found", evt.CameraID))
	}

	if evt.SmartDetection == model.DetectRing {
		p.notifyDoorbellRing(ctx, evt)
	}

	outcome, err := p.Core.Acquirer.Acquire(ctx, cam, evt)
	if err != nil {
		return model.NewError(model.KindMissingEvidence, err)
	}

	stored := outcomeToStoredEvent(cam, evt, outcome)

	if len(outcome.ThumbnailJPEG) > 0 && p.Core.Storage != nil {
		key := storage.ThumbnailKey(stored.ID, stored.Timestamp)
		url, err := p.Core.Storage.Put(ctx, key, outcome.ThumbnailJPEG, "image/jpeg")
		if err != nil {
			p.logger().Printf("[ERROR] core: thumbnail upload failed for event %s: %v", stored.ID, err)
		} else {
			stored.ThumbnailPath = url
		}
	}

	if err := p.Core.Events.CreateEvent(ctx, stored); err != nil {
		return model.NewError(model.KindPersistence, err)
	}

	p.runFanout(evt, stored)
	return nil
}

// notifyDoorbellRing publishes the low-latency DOORBELL_RING notification
// before the AI fallback chain runs — a doorbell press must reach
// downstream integrations well inside the chain's up-to-45s SLA, not after
// it. No thumbnail exists yet at this point in the pipeline, so the
// notification carries only camera and event identity plus the event
// timestamp; the later push notification (fan-out item #4) carries the
// full description and thumbnail once the chain has produced them.
func (p *Pipeline) notifyDoorbellRing(ctx context.Context, evt *model.ProcessingEvent) {
	if p.Core.Fanout.Notifier == nil {
		return
	}
	err := p.Core.Fanout.Notifier.Notify(ctx, fanout.Notification{
		CameraID:    evt.CameraID,
		EventID:     evt.EventID,
		Description: "DOORBELL_RING",
		CollapseKey: evt.CameraID.String(),
		Priority:    true,
	})
	if err != nil {
		p.logger().Printf("[ERROR] core: doorbell-ring notification failed for camera %s: %v", evt.CameraID, err)
	}
}

func (p *Pipeline) runFanout(evt *model.ProcessingEvent, stored *model.StoredEvent) {
	now := time.Now()
	today, err := p.Core.Events.CountSince(context.Background(), stored.CameraID, now.Truncate(24*time.Hour))
	if err != nil {
		p.logger().Printf("[ERROR] core: events-today count failed for camera %s: %v", stored.CameraID, err)
	}
	week, err := p.Core.Events.CountSince(context.Background(), stored.CameraID, now.AddDate(0, 0, -7))
	if err != nil {
		p.logger().Printf("[ERROR] core: events-this-week count failed for camera %s: %v", stored.CameraID, err)
	}

	p.Core.Fanout.Run(fanout.Input{
		Event:          evt,
		Stored:         stored,
		EventsToday:    today,
		EventsThisWeek: week,
	})
}

func outcomeToStoredEvent(cam *model.Camera, evt *model.ProcessingEvent, o *evidence.Outcome) *model.StoredEvent {
	se := &model.StoredEvent{
		ID:                     uuid.New(),
		CameraID:               evt.CameraID,
		Timestamp:              evt.Timestamp,
		Description:            o.Description,
		Confidence:             o.Confidence,
		AIConfidence:           o.AIConfidence,
		ObjectsDetected:        tagsFromEvent(evt),
		Source:                 cam.Source,
		SmartDetectionType:     evt.SmartDetection,
		IsDoorbellRing:         evt.SmartDetection == model.DetectRing,
		AnalysisMode:           o.AnalysisMode,
		FrameCountUsed:         o.FrameCountUsed,
		ProviderUsed:           o.ProviderUsed,
		AICost:                 o.AICost,
		DescriptionRetryNeeded: o.DescriptionRetry,
	}
	if o.FallbackReason != "" {
		fr := o.FallbackReason
		se.FallbackReason = &fr
	}
	if o.AnalysisSkipped {
		reason := o.AnalysisSkipReason
		se.AnalysisSkippedReason = &reason
	}
	if o.AudioTranscription != nil {
		se.AudioTranscription = o.AudioTranscription
	}
	return se
}

func tagsFromEvent(evt *model.ProcessingEvent) []string {
	out := make([]string, len(evt.DetectedTypes))
	for i, t := range evt.DetectedTypes {
		out[i] = string(t)
	}
	return out
}
