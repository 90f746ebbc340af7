package fanout

import "context"

// runCostAlert consults the cost-alert service and fires an alert if a
// spend threshold was just crossed — item #7. AlertChecker tracks the
// actual spend against the ledger itself; the spendToDate argument is
// unused by the current implementation (costing.ThresholdAlert) but kept
// in the interface for a future caller that tracks it locally.
func (d *Deps) runCostAlert(ctx context.Context, _ Input) {
	if d.CostAlert == nil {
		return
	}
	crossed, name, err := d.CostAlert.CheckThreshold(ctx, 0)
	if err != nil {
		d.fail(catCostAlert, err)
		return
	}
	if crossed {
		d.logger().Printf("[WARN] fanout: cost threshold %s crossed", name)
	}
}
