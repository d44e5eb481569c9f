package distribution

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"profitshare/internal/metrics"
)

// writeClaims creates one pending claim per share. Writes are independent
// upserts keyed by ClaimID, so they run in parallel and a retried write never
// duplicates a claim.
func (e *Engine) writeClaims(ctx context.Context, d ProfitDistribution, shares []Share) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.ClaimWriteConcurrency)

	for _, s := range shares {
		claim := ProfitClaim{
			ID:                    ClaimID(d.ID, s.UserID),
			UserID:                s.UserID,
			ProjectID:             d.ProjectID,
			DistributionID:        d.ID,
			TokenAmountAtSnapshot: s.TokenAmount,
			ClaimableAmount:       s.ClaimableAmount,
			State:                 PendingState{},
			Version:               1,
			CreatedAt:             d.CreatedAt,
		}
		g.Go(func() error {
			return e.upsertClaimWithRetry(gctx, claim)
		})
	}
	return g.Wait()
}

func (e *Engine) upsertClaimWithRetry(ctx context.Context, c ProfitClaim) error {
	var err error
	for attempt := 1; attempt <= e.cfg.ClaimWriteAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = e.claims.UpsertClaim(ctx, c); err == nil {
			metrics.ClaimsWritten.Inc()
			return nil
		}
		e.log.WithField("claim_id", c.ID).WithField("attempt", attempt).WithError(err).Warn("Claim write failed")
	}
	return fmt.Errorf("write claim %s: %w", c.ID, err)
}
