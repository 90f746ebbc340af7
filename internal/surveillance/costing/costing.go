// Package costing gates AI dispatch on a daily/monthly spend cap and raises
// alerts when a configurable threshold is crossed — spec.md §4.5 "Cost cap
// gate" and §4.8 item #7 "Cost-threshold check".
package costing

import (
	"context"
	"time"
)

// CapChecker is consulted by evidence.Acquire before any AI dispatch.
// Grounded on the health scheduler's shouldSkip backoff-gate shape: a pure
// predicate consulted before doing expensive work.
type CapChecker interface {
	// CapActive reports whether AI dispatch should be paused, and why
	// (e.g. "daily_limit", "monthly_limit"). Reason strings are opaque to
	// callers beyond presence, per spec.md's "downstream should not parse
	// them beyond presence" note.
	CapActive(ctx context.Context) (active bool, reason string, err error)
}

// AlertChecker is consulted after a successful AI dispatch to decide
// whether a spend-threshold alert should fire.
type AlertChecker interface {
	CheckThreshold(ctx context.Context, spendToDate float64) (crossed bool, thresholdName string, err error)
}

// Ledger is the append-only AI usage log — the persistence side of
// aiprovider.UsageLog, separated so the AI-dispatch package doesn't need a
// database dependency.
type Ledger interface {
	Append(ctx context.Context, entry Entry) error
	SpendSince(ctx context.Context, since time.Time) (float64, error)
}

// Entry mirrors aiprovider.UsageEntry plus the analysis_mode/image_count
// fields spec.md §4.5 requires be logged.
type Entry struct {
	Timestamp      time.Time
	Provider       string
	Success        bool
	TokensIn       int
	TokensOut      int
	ResponseTimeMS int64
	CostUSD        float64
	IsEstimated    bool
	AnalysisMode   string
	ImageCount     int
	Error          string
}
