package costing

import (
	"context"
	"time"
)

// Limits is the configured daily/monthly spend cap, read from
// SystemSetting rows (internal/data) and refreshed by the caller.
type Limits struct {
	DailyLimitUSD   float64 // 0 disables the check
	MonthlyLimitUSD float64
}

// DailyMonthlyCap is the default CapChecker: consults Ledger.SpendSince
// against the start of the current day and month.
type DailyMonthlyCap struct {
	Ledger Ledger
	Limits func() Limits // late-bound so config hot-reload is visible without reconstructing the cap
}

func NewDailyMonthlyCap(ledger Ledger, limits func() Limits) *DailyMonthlyCap {
	return &DailyMonthlyCap{Ledger: ledger, Limits: limits}
}

func (c *DailyMonthlyCap) CapActive(ctx context.Context) (bool, string, error) {
	limits := c.Limits()
	now := time.Now().UTC()

	if limits.DailyLimitUSD > 0 {
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		spend, err := c.Ledger.SpendSince(ctx, dayStart)
		if err != nil {
			return false, "", err
		}
		if spend >= limits.DailyLimitUSD {
			return true, "daily_limit", nil
		}
	}

	if limits.MonthlyLimitUSD > 0 {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		spend, err := c.Ledger.SpendSince(ctx, monthStart)
		if err != nil {
			return false, "", err
		}
		if spend >= limits.MonthlyLimitUSD {
			return true, "monthly_limit", nil
		}
	}

	return false, "", nil
}

// ThresholdAlert fires once per crossing of each configured fraction of the
// monthly limit (e.g. 0.5, 0.8, 1.0), tracking which thresholds have
// already fired this month to avoid repeat alerts.
type ThresholdAlert struct {
	Ledger     Ledger
	Limits     func() Limits
	Fractions  []float64

	firedMonth time.Month
	firedYear  int
	fired      map[float64]bool
}

func NewThresholdAlert(ledger Ledger, limits func() Limits, fractions []float64) *ThresholdAlert {
	if len(fractions) == 0 {
		fractions = []float64{0.5, 0.8, 1.0}
	}
	return &ThresholdAlert{Ledger: ledger, Limits: limits, Fractions: fractions, fired: make(map[float64]bool)}
}

func (a *ThresholdAlert) CheckThreshold(ctx context.Context, _ float64) (bool, string, error) {
	limits := a.Limits()
	if limits.MonthlyLimitUSD <= 0 {
		return false, "", nil
	}

	now := time.Now().UTC()
	if now.Month() != a.firedMonth || now.Year() != a.firedYear {
		a.firedMonth, a.firedYear = now.Month(), now.Year()
		a.fired = make(map[float64]bool)
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	spend, err := a.Ledger.SpendSince(ctx, monthStart)
	if err != nil {
		return false, "", err
	}

	ratio := spend / limits.MonthlyLimitUSD
	var crossedName string
	for _, f := range a.Fractions {
		if ratio >= f && !a.fired[f] {
			a.fired[f] = true
			crossedName = thresholdLabel(f)
		}
	}
	return crossedName != "", crossedName, nil
}

func thresholdLabel(f float64) string {
	switch {
	case f >= 1.0:
		return "monthly_100pct"
	case f >= 0.8:
		return "monthly_80pct"
	case f >= 0.5:
		return "monthly_50pct"
	default:
		return "monthly_threshold"
	}
}
