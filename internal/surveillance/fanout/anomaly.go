package fanout

import "context"

// runAnomaly updates the per-camera activity baseline and computes this
// event's anomaly score — item #11.
func (d *Deps) runAnomaly(ctx context.Context, in Input) {
	if d.Baseline == nil {
		return
	}
	score, err := d.Baseline.Score(ctx, in.Event.CameraID, in.Event.Timestamp)
	if err != nil {
		d.fail(catAnomaly, err)
		return
	}
	if score == nil || d.Persist == nil {
		return
	}
	d.fail(catAnomaly, d.Persist.UpdateEventEnrichment(ctx, in.Event.EventID, EnrichmentFields{AnomalyScore: score}))
}
