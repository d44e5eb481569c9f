package distribution

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"profitshare/internal/metrics"
	"profitshare/pkg/money"
)

// Reconcile sums the claims of a distribution and checks them against its
// distributed profit. Discrepancies are reported, logged and audited; nothing
// is corrected.
func (e *Engine) Reconcile(ctx context.Context, distributionID string) (ReconciliationReport, error) {
	const op = "reconcile"
	d, err := e.distributions.GetDistribution(ctx, distributionID)
	if err != nil {
		return ReconciliationReport{}, storeError(op, err)
	}
	claims, err := e.claims.ListClaimsByDistribution(ctx, distributionID)
	if err != nil {
		return ReconciliationReport{}, storeError(op, err)
	}

	report := buildReport(d, claims)
	report.CheckedAt = e.clock.Now()

	logger := e.log.WithFields(logrus.Fields{
		"distribution_id":    d.ID,
		"project_id":         d.ProjectID,
		"distributed_profit": d.DistributedProfit.String(),
		"total_claimable":    report.TotalClaimable.String(),
		"total_claimed":      report.TotalClaimed.String(),
		"complete":           report.Complete,
	})
	if !report.Balanced {
		metrics.ReconciliationDiscrepancies.Inc()
		logger.WithField("discrepancy", report.Discrepancy.String()).
			WithField("alerts", report.Alerts).
			Error("Reconciliation discrepancy")
		e.record(ctx, systemActor, ActionReconcileDiscrepancy, entityTypeDistribution, d.ID, nil, map[string]any{
			"total_claimable": int64(report.TotalClaimable),
			"total_claimed":   int64(report.TotalClaimed),
			"discrepancy":     int64(report.Discrepancy),
			"alerts":          report.Alerts,
		})
		return report, nil
	}
	logger.Debug("Reconciliation balanced")
	return report, nil
}

// ReconcileDistributed reconciles every distributed distribution. A failure on
// one distribution does not stop the others.
func (e *Engine) ReconcileDistributed(ctx context.Context) ([]ReconciliationReport, error) {
	const op = "reconcile distributed"
	list, err := e.distributions.ListDistributionsByStatus(ctx, DistributionDistributed)
	if err != nil {
		return nil, storeError(op, err)
	}
	reports := make([]ReconciliationReport, 0, len(list))
	var errs []error
	for _, d := range list {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		r, err := e.Reconcile(ctx, d.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.ID, err))
			continue
		}
		reports = append(reports, r)
	}
	return reports, errors.Join(errs...)
}

func buildReport(d ProfitDistribution, claims []ProfitClaim) ReconciliationReport {
	r := ReconciliationReport{
		DistributionID:    d.ID,
		DistributedProfit: d.DistributedProfit,
		ClaimCount:        len(claims),
	}
	for _, c := range claims {
		r.TotalClaimable += c.ClaimableAmount
		r.TotalClaimed += c.ClaimedAmount()
		switch c.Status() {
		case ClaimPending:
			r.PendingCount++
		case ClaimProcessing:
			r.ProcessingCount++
		case ClaimCompleted:
			r.CompletedCount++
			if c.ClaimedAmount() != c.ClaimableAmount {
				r.Alerts = append(r.Alerts, fmt.Sprintf("claim %s settled %s of %s claimable",
					c.ID, c.ClaimedAmount(), c.ClaimableAmount))
			}
		}
	}
	r.Complete = len(claims) > 0 && r.CompletedCount == len(claims)

	if d.Status == DistributionDistributed && len(claims) != d.HolderCount {
		r.Alerts = append(r.Alerts, fmt.Sprintf("%d claims recorded for %d holders", len(claims), d.HolderCount))
	}
	if r.TotalClaimable != d.DistributedProfit {
		r.Alerts = append(r.Alerts, fmt.Sprintf("claimable total %s differs from distributed profit %s",
			r.TotalClaimable, d.DistributedProfit))
	}

	var outstanding money.Amount
	if r.Complete {
		outstanding = d.DistributedProfit - r.TotalClaimed
		if outstanding != 0 {
			r.Alerts = append(r.Alerts, fmt.Sprintf("settled total %s differs from distributed profit %s",
				r.TotalClaimed, d.DistributedProfit))
		}
	} else {
		outstanding = d.DistributedProfit - r.TotalClaimable
	}
	r.Discrepancy = outstanding
	r.Balanced = len(r.Alerts) == 0
	return r
}
