package distribution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"profitshare/internal/metrics"
	"profitshare/pkg/money"
)

// CreateDistributionInput is an admin's request to distribute a quarter's profit.
type CreateDistributionInput struct {
	ProjectID   string
	Period      Period
	TotalProfit money.Amount
	AdminID     string
	Notes       string
}

func (in CreateDistributionInput) validate(op string) error {
	switch {
	case strings.TrimSpace(in.ProjectID) == "":
		return validationf(op, "project id is required")
	case strings.TrimSpace(in.AdminID) == "":
		return validationf(op, "admin id is required")
	case in.Period.Quarter < 1 || in.Period.Quarter > 4:
		return validationf(op, "quarter must be between 1 and 4, got %d", in.Period.Quarter)
	case in.Period.Year <= 0:
		return validationf(op, "year must be positive, got %d", in.Period.Year)
	case in.Period.StartDate.IsZero() || in.Period.EndDate.IsZero():
		return validationf(op, "period start and end dates are required")
	case !in.Period.StartDate.Before(in.Period.EndDate):
		return validationf(op, "period start must be before period end")
	case in.TotalProfit <= 0:
		return validationf(op, "total profit must be positive")
	}
	return nil
}

// CreateDistribution allocates a quarter's profit across the project's current
// holders and writes one pending claim per holder. At most one distribution
// exists per (project, quarter, year); a concurrent or repeated request for
// the same period fails with ErrDuplicateDistribution.
func (e *Engine) CreateDistribution(ctx context.Context, in CreateDistributionInput) (ProfitDistribution, error) {
	const op = "create distribution"
	if err := in.validate(op); err != nil {
		metrics.DistributionRejections.WithLabelValues("invalid_input").Inc()
		return ProfitDistribution{}, err
	}
	logger := e.log.WithFields(logrus.Fields{
		"project_id": in.ProjectID,
		"quarter":    in.Period.Quarter,
		"year":       in.Period.Year,
		"admin_id":   in.AdminID,
	})

	holdings, err := e.snapshotHoldings(ctx, in.ProjectID)
	if err != nil {
		metrics.DistributionRejections.WithLabelValues("ledger_unavailable").Inc()
		logger.WithError(err).Error("Failed to read completed holdings")
		return ProfitDistribution{}, newError(KindTransientDependency, op, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err))
	}

	alloc, err := Allocate(in.TotalProfit, e.cfg.FeeRate, holdings)
	if err != nil {
		if errors.Is(err, ErrNoCirculatingTokens) {
			metrics.DistributionRejections.WithLabelValues("no_circulating_tokens").Inc()
			logger.Warn("Distribution rejected: no circulating tokens")
			return ProfitDistribution{}, newError(KindValidation, op, err)
		}
		return ProfitDistribution{}, storeError(op, err)
	}

	now := e.clock.Now()
	d := ProfitDistribution{
		ID:                     e.ids.NewID(),
		ProjectID:              in.ProjectID,
		Period:                 in.Period,
		TotalProfit:            alloc.TotalProfit,
		FeeRate:                alloc.FeeRate,
		PlatformFee:            alloc.PlatformFee,
		DistributedProfit:      alloc.DistributedProfit,
		ProfitPerToken:         alloc.ProfitPerToken,
		TotalCirculatingTokens: alloc.TotalCirculatingTokens,
		HolderCount:            len(alloc.Shares),
		Status:                 DistributionCalculated,
		AdminID:                in.AdminID,
		Notes:                  in.Notes,
		CreatedAt:              now,
	}
	logger = logger.WithField("distribution_id", d.ID)

	if err := e.distributions.ReservePeriod(ctx, d); err != nil {
		if errors.Is(err, ErrDuplicateDistribution) {
			metrics.DistributionRejections.WithLabelValues("duplicate").Inc()
			logger.Warn("Distribution rejected: period already distributed")
		}
		return ProfitDistribution{}, storeError(op, err)
	}

	if err := e.writeClaims(ctx, d, alloc.Shares); err != nil {
		logger.WithError(err).Error("Claim fan-out failed, releasing period reservation")
		if relErr := e.distributions.ReleasePeriod(context.WithoutCancel(ctx), d.ID); relErr != nil {
			logger.WithError(relErr).Error("Failed to release period reservation")
		} else {
			e.record(ctx, in.AdminID, ActionDistributionReleased, entityTypeDistribution, d.ID, distributionSnapshot(d), nil)
		}
		metrics.DistributionRejections.WithLabelValues("claim_write_failed").Inc()
		return ProfitDistribution{}, newError(KindTransientDependency, op, err)
	}

	distributedAt := e.clock.Now()
	if err := e.distributions.MarkDistributed(ctx, d.ID, distributedAt); err != nil {
		logger.WithError(err).Error("Failed to mark distribution as distributed")
		return ProfitDistribution{}, storeError(op, err)
	}
	d.Status = DistributionDistributed
	d.DistributedAt = &distributedAt

	metrics.DistributionsCreated.Inc()
	logger.WithFields(logrus.Fields{
		"total_profit":       d.TotalProfit.String(),
		"platform_fee":       d.PlatformFee.String(),
		"distributed_profit": d.DistributedProfit.String(),
		"profit_per_token":   d.ProfitPerToken,
		"holder_count":       d.HolderCount,
	}).Info("Distribution created")
	e.record(ctx, in.AdminID, ActionDistributionCreated, entityTypeDistribution, d.ID, nil, distributionSnapshot(d))
	return d, nil
}

// snapshotHoldings reads the ledger under the configured timeout.
func (e *Engine) snapshotHoldings(ctx context.Context, projectID string) ([]Holding, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.LedgerTimeout)
	defer cancel()

	start := time.Now()
	rows, err := e.ledger.GetCompletedHoldings(ctx, projectID)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.DependencyLatency.WithLabelValues("ledger", result).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return aggregateHoldings(rows), nil
}

// AttachSettlementReference records the bank reference for the funds backing a
// distribution. It can be set once.
func (e *Engine) AttachSettlementReference(ctx context.Context, distributionID, adminID, reference string) (ProfitDistribution, error) {
	const op = "attach settlement reference"
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return ProfitDistribution{}, validationf(op, "settlement reference is required")
	}
	before, err := e.distributions.GetDistribution(ctx, distributionID)
	if err != nil {
		return ProfitDistribution{}, storeError(op, err)
	}
	if before.SettlementReference != "" {
		return ProfitDistribution{}, newError(KindStateConflict, op, ErrSettlementReferenceSet)
	}
	if err := e.distributions.AttachSettlementReference(ctx, distributionID, reference); err != nil {
		return ProfitDistribution{}, storeError(op, err)
	}
	after := before
	after.SettlementReference = reference

	e.log.WithFields(logrus.Fields{
		"distribution_id":      distributionID,
		"admin_id":             adminID,
		"settlement_reference": reference,
	}).Info("Settlement reference attached")
	e.record(ctx, adminID, ActionSettlementReference, entityTypeDistribution, distributionID,
		distributionSnapshot(before), distributionSnapshot(after))
	return after, nil
}
