package fanout

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/technosupport/surveillance-core/internal/surveillance/model"
)

// runEmbeddingStore persists the pre-inference embedding independent of
// entity linking — item #5. A no-op if no embedding was produced (e.g. the
// event's evidence never reached the stage that computes one).
func (d *Deps) runEmbeddingStore(ctx context.Context, in Input) {
	if d.Embeddings == nil || len(in.Embedding) == 0 {
		return
	}
	d.fail(catEmbedding, d.Embeddings.StoreEventEmbedding(ctx, in.Event.EventID, in.Embedding))
}

// runEntityMatch performs the writing match-or-create against the same
// embedding, linking the event to an entity — item #6.
func (d *Deps) runEntityMatch(ctx context.Context, in Input) (model.EntityMatchResult, bool) {
	if d.Entities == nil || len(in.Embedding) == 0 {
		return model.EntityMatchResult{}, false
	}
	entType := model.EntityPerson
	if in.Event.SmartDetection == model.DetectVehicle {
		entType = model.EntityVehicle
	}

	var result model.EntityMatchResult
	var err error
	if entType == model.EntityVehicle {
		result, err = d.Entities.MatchOrCreateVehicle(ctx, in.Event.EventID, in.Embedding, in.Stored.Description)
	} else {
		result, err = d.Entities.MatchOrCreate(ctx, in.Event.EventID, in.Embedding, entType)
	}
	if err != nil {
		d.fail(catEntityMatch, err)
		return model.EntityMatchResult{}, false
	}
	return result, true
}

// runRecognition runs face and/or vehicle recognition when their privacy
// flags are enabled and the relevant object class is present — item #8.
// Returns the matched entity ids so runEntityAlert can enrich the
// description without re-running recognition.
func (d *Deps) runRecognition(ctx context.Context, in Input) []uuid.UUID {
	if d.Recognizer == nil {
		return nil
	}
	var matched []uuid.UUID

	if d.Flags.FaceRecognitionEnabled && in.Event.SmartDetection == model.DetectPerson {
		ids, err := d.Recognizer.RecognizeFaces(ctx, in.Event)
		if err != nil {
			d.fail(catRecognition, err)
		} else {
			matched = append(matched, ids...)
		}
	}

	if d.Flags.VehicleRecognitionEnabled && in.Event.SmartDetection == model.DetectVehicle {
		ids, err := d.Recognizer.RecognizeVehicle(ctx, in.Event, in.Stored.Description)
		if err != nil {
			d.fail(catRecognition, err)
		} else {
			matched = append(matched, ids...)
		}
	}

	return matched
}

// runEntityAlert enriches the description with recognized entity names,
// sets recognition_status, suppresses blocked entities, and promotes VIPs
// to a priority notification — item #9. Runs the recognition stage inline
// (rather than waiting on the separately-dispatched item #8 goroutine)
// since item #9 is defined in terms of item #8's output and both are
// best-effort, catch-all-recovered work anyway.
func (d *Deps) runEntityAlert(ctx context.Context, in Input) {
	if d.Namer == nil || d.Persist == nil {
		return
	}

	matched := d.runRecognition(ctx, in)

	if len(matched) == 0 {
		status := model.RecognitionUnknown
		d.fail(catEntityAlert, d.Persist.UpdateEventEnrichment(ctx, in.Event.EventID, EnrichmentFields{Recognition: &status}))
		return
	}

	var names []string
	status := model.RecognitionStranger
	priority := false
	for _, id := range matched {
		name, vip, blocked, err := d.Namer.Describe(ctx, id)
		if err != nil {
			d.fail(catEntityAlert, err)
			continue
		}
		if blocked {
			continue
		}
		if name != "" {
			names = append(names, name)
			status = model.RecognitionKnown
		}
		if vip {
			priority = true
		}
	}

	// Stored.Description is read concurrently by the bus/notification
	// stages; this task owns the persisted row, not the in-memory struct,
	// so the rewritten description is written straight through Persist
	// (a partial column update) rather than mutated on the shared Input.
	fields := EnrichmentFields{Recognition: &status, MatchedEntities: matched, Priority: &priority}
	if len(names) > 0 {
		description := in.Stored.Description + " (" + strings.Join(names, ", ") + ")"
		fields.Description = &description
	}

	d.fail(catEntityAlert, d.Persist.UpdateEventEnrichment(ctx, in.Event.EventID, fields))
}
