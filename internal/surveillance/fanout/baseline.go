package fanout

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
)

// BaselineStore persists and retrieves the per-camera, per-hour event
// counts the anomaly score is computed from.
type BaselineStore interface {
	// IncrementHourCount records one event's occurrence and returns the
	// running count for (camera, the hour window containing at).
	IncrementHourCount(ctx context.Context, cameraID uuid.UUID, at time.Time) (int, error)
	// SameHourCounts returns up to weeks prior same-weekday/same-hour
	// counts, oldest first, excluding the current (just-incremented) hour.
	SameHourCounts(ctx context.Context, cameraID uuid.UUID, at time.Time, weeks int) ([]int, error)
}

// Baseline computes a per-camera activity-baseline anomaly score — item
// #11. Restored from original_source/event_processor.py's reference to an
// activity-baseline concept; the scoring service implementation itself
// (anomaly_scoring_service.py) is not present in the source this was
// ported from, so the z-score-against-trailing-4-week-same-hour-baseline
// definition here is a supplemented design, not a direct port.
type Baseline struct {
	Store BaselineStore
	Weeks int // trailing same-hour weeks to average over, default 4
}

func NewBaseline(store BaselineStore) *Baseline {
	return &Baseline{Store: store, Weeks: 4}
}

func (b *Baseline) weeks() int {
	if b.Weeks > 0 {
		return b.Weeks
	}
	return 4
}

// Score updates the running count for the current hour and returns the
// z-score of that count against the trailing same-hour baseline, clamped
// to [0,100]. Returns nil (no score) until at least two prior weeks of
// history exist for this camera/hour.
func (b *Baseline) Score(ctx context.Context, cameraID uuid.UUID, at time.Time) (*float64, error) {
	current, err := b.Store.IncrementHourCount(ctx, cameraID, at)
	if err != nil {
		return nil, err
	}

	history, err := b.Store.SameHourCounts(ctx, cameraID, at, b.weeks())
	if err != nil {
		return nil, err
	}
	if len(history) < 2 {
		return nil, nil
	}

	mean, stddev := meanStdDev(history)
	var z float64
	switch {
	case stddev > 0:
		z = (float64(current) - mean) / stddev
	case float64(current) == mean:
		z = 0
	case float64(current) > mean:
		z = 100
	default:
		z = 0
	}

	score := clamp(z, 0, 100)
	return &score, nil
}

func meanStdDev(counts []int) (mean, stddev float64) {
	n := float64(len(counts))
	var sum float64
	for _, c := range counts {
		sum += float64(c)
	}
	mean = sum / n

	var variance float64
	for _, c := range counts {
		d := float64(c) - mean
		variance += d * d
	}
	variance /= n
	stddev = math.Sqrt(variance)
	return mean, stddev
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
