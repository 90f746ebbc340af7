package data

import (
	"context"
	"database/sql"
	"time"

	"github.com/technosupport/surveillance-core/internal/surveillance/costing"
)

// AIUsageModel is the Postgres-backed costing.Ledger — one append-only row
// per AI dispatch attempt, mirroring spec.md §4.5's "analysis_mode/
// image_count must be logged" requirement.
type AIUsageModel struct {
	DB *sql.DB
}

var _ costing.Ledger = AIUsageModel{}

func (m AIUsageModel) Append(ctx context.Context, entry costing.Entry) error {
	_, err := m.DB.ExecContext(ctx, `
		INSERT INTO ai_usage_log (
			timestamp, provider, success, tokens_in, tokens_out, response_time_ms,
			cost_usd, is_estimated, analysis_mode, image_count, error
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.Timestamp, entry.Provider, entry.Success, entry.TokensIn, entry.TokensOut, entry.ResponseTimeMS,
		entry.CostUSD, entry.IsEstimated, entry.AnalysisMode, entry.ImageCount, nullableString(entry.Error),
	)
	return err
}

func (m AIUsageModel) SpendSince(ctx context.Context, since time.Time) (float64, error) {
	var total sql.NullFloat64
	err := m.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(cost_usd), 0) FROM ai_usage_log WHERE timestamp >= $1`, since,
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
