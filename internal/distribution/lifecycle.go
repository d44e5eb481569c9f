package distribution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"profitshare/internal/metrics"
)

// settleAttempts bounds how often a settlement re-reads a claim that changed
// underneath it.
const settleAttempts = 3

// NotificationOutcome describes what a payment notification did to its claim.
type NotificationOutcome string

const (
	OutcomeSettled    NotificationOutcome = "settled"
	OutcomeRolledBack NotificationOutcome = "rolled_back"
	OutcomeIgnored    NotificationOutcome = "ignored"
)

// RequestClaim starts settlement of the caller's claim on a distribution.
func (e *Engine) RequestClaim(ctx context.Context, distributionID, callerID string, bank BankDetails) (ProfitClaim, error) {
	return e.RequestClaimByID(ctx, ClaimID(distributionID, callerID), callerID, bank)
}

// RequestClaimByID moves a pending claim to processing and asks the payment
// gateway to transfer the claimable amount. When the gateway rejects the
// transfer the claim is returned to pending and a retryable error is
// returned. Callers other than the owner are rejected without any change.
func (e *Engine) RequestClaimByID(ctx context.Context, claimID, callerID string, bank BankDetails) (ProfitClaim, error) {
	const op = "request claim"
	if strings.TrimSpace(callerID) == "" {
		return ProfitClaim{}, validationf(op, "caller id is required")
	}
	if strings.TrimSpace(bank.AccountNumber) == "" {
		return ProfitClaim{}, validationf(op, "bank account is required")
	}

	claim, err := e.claims.GetClaim(ctx, claimID)
	if err != nil {
		return ProfitClaim{}, storeError(op, err)
	}
	logger := e.log.WithFields(logrus.Fields{
		"claim_id":        claim.ID,
		"distribution_id": claim.DistributionID,
		"user_id":         callerID,
	})
	if claim.UserID != callerID {
		logger.Warn("Claim request rejected: caller is not the owner")
		return ProfitClaim{}, newError(KindAuthorization, op, ErrNotClaimOwner)
	}
	if claim.Status() != ClaimPending {
		return ProfitClaim{}, newError(KindStateConflict, op, fmt.Errorf("%w: status is %s", ErrClaimNotPending, claim.Status()))
	}

	d, err := e.distributions.GetDistribution(ctx, claim.DistributionID)
	if err != nil {
		return ProfitClaim{}, storeError(op, err)
	}
	if d.Status != DistributionDistributed {
		return ProfitClaim{}, newError(KindStateConflict, op, ErrDistributionNotOpen)
	}

	processing, err := e.transition(ctx, claim, ProcessingState{
		BankAccount: bank.AccountNumber,
		ProcessedAt: e.clock.Now(),
	}, callerID, ActionClaimProcessing)
	if err != nil {
		if errors.Is(err, ErrStaleClaim) {
			return ProfitClaim{}, newError(KindStateConflict, op, ErrClaimNotPending)
		}
		return ProfitClaim{}, storeError(op, err)
	}

	paymentID, initErr := e.initiatePayment(ctx, processing, bank)
	if initErr != nil {
		metrics.PaymentInitiationFailures.Inc()
		logger.WithError(initErr).Warn("Payment initiation failed, rolling claim back to pending")
		if _, rbErr := e.transition(context.WithoutCancel(ctx), processing, PendingState{}, systemActor, ActionClaimRolledBack); rbErr != nil {
			logger.WithError(rbErr).Error("Failed to roll claim back after payment initiation failure")
		}
		return ProfitClaim{}, newError(KindTransientDependency, op, fmt.Errorf("%w: %v", ErrClaimProcessingFailed, initErr))
	}

	state := processing.State.(ProcessingState)
	state.PaymentID = paymentID
	initiated, err := e.transition(context.WithoutCancel(ctx), processing, state, callerID, ActionClaimPaymentInitiated)
	if errors.Is(err, ErrStaleClaim) {
		// The gateway called back before the payment id was stored.
		return e.afterEarlyNotification(context.WithoutCancel(ctx), op, claimID, paymentID)
	}
	if err != nil {
		// The transfer is in flight, so the claim must not be rolled back here.
		logger.WithField("payment_id", paymentID).WithError(err).Error("Payment initiated but payment id could not be stored")
		return ProfitClaim{}, storeError(op, err)
	}
	logger.WithFields(logrus.Fields{
		"payment_id": paymentID,
		"amount":     claim.ClaimableAmount.String(),
		"account":    MaskAccount(bank.AccountNumber),
	}).Info("Claim payment initiated")
	return initiated, nil
}

// afterEarlyNotification reports the claim once a notification has already
// moved it past the payment id attach.
func (e *Engine) afterEarlyNotification(ctx context.Context, op, claimID, paymentID string) (ProfitClaim, error) {
	logger := e.log.WithFields(logrus.Fields{
		"claim_id":   claimID,
		"payment_id": paymentID,
	})
	c, err := e.claims.GetClaim(ctx, claimID)
	if err != nil {
		logger.WithError(err).Error("Payment initiated but claim could not be re-read")
		return ProfitClaim{}, storeError(op, err)
	}
	switch c.Status() {
	case ClaimProcessing, ClaimCompleted:
		logger.WithField("status", c.Status()).Info("Claim already advanced by payment notification")
		return c, nil
	default:
		logger.WithField("status", c.Status()).Warn("Payment failed before its id was stored")
		return ProfitClaim{}, newError(KindTransientDependency, op, fmt.Errorf("%w: payment %s failed", ErrClaimProcessingFailed, paymentID))
	}
}

func (e *Engine) initiatePayment(ctx context.Context, c ProfitClaim, bank BankDetails) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.PaymentTimeout)
	defer cancel()

	start := time.Now()
	paymentID, err := e.payments.Initiate(ctx, TransferRequest{
		ClaimID:     c.ID,
		UserID:      c.UserID,
		Amount:      c.ClaimableAmount,
		Currency:    e.cfg.Currency,
		BankDetails: bank,
	})
	if err == nil && strings.TrimSpace(paymentID) == "" {
		err = errors.New("payment gateway returned an empty payment id")
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.DependencyLatency.WithLabelValues("payment", result).Observe(time.Since(start).Seconds())
	return paymentID, err
}

// SettleClaim completes a processing claim, paying out the full claimable
// amount. Claims in any other status are left untouched and no error is
// returned, so redelivered notifications are harmless.
func (e *Engine) SettleClaim(ctx context.Context, claimID string) (ProfitClaim, error) {
	const op = "settle claim"
	c, _, err := e.settle(ctx, claimID, "")
	if err != nil {
		return ProfitClaim{}, storeError(op, err)
	}
	return c, nil
}

// settle completes the claim when it is processing and, if paymentID is set,
// carries that payment. It reports whether a transition happened.
func (e *Engine) settle(ctx context.Context, claimID, paymentID string) (ProfitClaim, bool, error) {
	for attempt := 0; attempt < settleAttempts; attempt++ {
		c, err := e.claims.GetClaim(ctx, claimID)
		if err != nil {
			return ProfitClaim{}, false, err
		}
		logger := e.log.WithFields(logrus.Fields{
			"claim_id":        c.ID,
			"distribution_id": c.DistributionID,
			"status":          c.Status(),
		})
		processing, ok := c.State.(ProcessingState)
		if !ok {
			logger.Info("Settlement ignored: claim is not processing")
			return c, false, nil
		}
		if paymentID != "" && processing.PaymentID != "" && processing.PaymentID != paymentID {
			logger.WithField("payment_id", paymentID).Warn("Settlement ignored: payment id does not match claim")
			return c, false, nil
		}
		if processing.PaymentID == "" {
			processing.PaymentID = paymentID
		}

		processedAt := processing.ProcessedAt
		completed, err := e.transition(ctx, c, CompletedState{
			Payment: PaymentDetails{
				PaymentID:   processing.PaymentID,
				BankAccount: processing.BankAccount,
				ProcessedAt: &processedAt,
			},
			ClaimedAmount: c.ClaimableAmount,
			ClaimedAt:     e.clock.Now(),
		}, paymentGatewayActor, ActionClaimCompleted)
		if errors.Is(err, ErrStaleClaim) {
			continue
		}
		if err != nil {
			return ProfitClaim{}, false, err
		}
		logger.WithField("claimed_amount", completed.ClaimedAmount().String()).Info("Claim settled")
		return completed, true, nil
	}
	return ProfitClaim{}, false, ErrStaleClaim
}

// HandlePaymentNotification applies an asynchronous payment outcome to the
// claim carrying that payment id. Completion settles the claim. Failure rolls
// a processing claim back to pending so the owner can request it again.
//
// A notification can arrive before the payment id is stored on the claim. It
// then falls back to the claim id echoed by the gateway. Settlement and
// rollback still only touch a processing claim whose payment id is unset or
// equal to the notified one.
func (e *Engine) HandlePaymentNotification(ctx context.Context, n PaymentNotification) (NotificationOutcome, error) {
	const op = "handle payment notification"
	if strings.TrimSpace(n.PaymentID) == "" {
		return "", validationf(op, "payment id is required")
	}
	if n.Status != PaymentCompleted && n.Status != PaymentFailed {
		return "", validationf(op, "unknown payment status %q", n.Status)
	}
	logger := e.log.WithFields(logrus.Fields{
		"payment_id": n.PaymentID,
		"claim_id":   n.ClaimID,
		"status":     n.Status,
	})

	c, err := e.notifiedClaim(ctx, n)
	if errors.Is(err, ErrClaimNotFound) && n.Status == PaymentFailed {
		// Already rolled back or never stored; nothing to undo.
		logger.Warn("Failure notification ignored: no claim carries this payment")
		metrics.SettlementNotifications.WithLabelValues(string(OutcomeIgnored)).Inc()
		return OutcomeIgnored, nil
	}
	if err != nil {
		if errors.Is(err, ErrClaimNotFound) {
			logger.Error("Completion notification for unknown payment")
		}
		return "", storeError(op, err)
	}

	var outcome NotificationOutcome
	if n.Status == PaymentCompleted {
		_, settled, err := e.settle(ctx, c.ID, n.PaymentID)
		if err != nil {
			return "", storeError(op, err)
		}
		outcome = OutcomeIgnored
		if settled {
			outcome = OutcomeSettled
		}
	} else {
		outcome, err = e.rollbackFailedPayment(ctx, c, n)
		if err != nil {
			return "", storeError(op, err)
		}
	}
	metrics.SettlementNotifications.WithLabelValues(string(outcome)).Inc()
	return outcome, nil
}

// notifiedClaim finds the claim a notification refers to.
func (e *Engine) notifiedClaim(ctx context.Context, n PaymentNotification) (ProfitClaim, error) {
	c, err := e.claims.FindClaimByPaymentID(ctx, n.PaymentID)
	if !errors.Is(err, ErrClaimNotFound) || strings.TrimSpace(n.ClaimID) == "" {
		return c, err
	}
	c, err = e.claims.GetClaim(ctx, strings.TrimSpace(n.ClaimID))
	if err != nil {
		return ProfitClaim{}, err
	}
	e.log.WithFields(logrus.Fields{
		"claim_id":   c.ID,
		"payment_id": n.PaymentID,
		"status":     c.Status(),
	}).Info("Payment id not stored on any claim, matched notification by claim id")
	return c, nil
}

func (e *Engine) rollbackFailedPayment(ctx context.Context, c ProfitClaim, n PaymentNotification) (NotificationOutcome, error) {
	logger := e.log.WithFields(logrus.Fields{
		"claim_id":   c.ID,
		"payment_id": n.PaymentID,
		"reason":     n.Reason,
	})
	processing, ok := c.State.(ProcessingState)
	if !ok || (processing.PaymentID != "" && processing.PaymentID != n.PaymentID) {
		logger.WithField("status", c.Status()).Info("Failure notification ignored: claim is not processing this payment")
		return OutcomeIgnored, nil
	}
	if _, err := e.transition(ctx, c, PendingState{}, paymentGatewayActor, ActionClaimPaymentFailed); err != nil {
		if errors.Is(err, ErrStaleClaim) {
			logger.Info("Failure notification ignored: claim changed concurrently")
			return OutcomeIgnored, nil
		}
		return "", err
	}
	logger.Warn("Payment failed, claim returned to pending")
	return OutcomeRolledBack, nil
}

// transition swaps the claim into next with a compare-and-swap on its current
// status and version, then logs, counts and audits the change.
func (e *Engine) transition(ctx context.Context, current ProfitClaim, next ClaimState, actor, action string) (ProfitClaim, error) {
	from := current.Status()
	// Processing to processing only attaches the payment id.
	if !legalTransition(from, next.Status()) && !(from == ClaimProcessing && next.Status() == ClaimProcessing) {
		return ProfitClaim{}, fmt.Errorf("illegal claim transition %s -> %s", from, next.Status())
	}
	updated := current
	updated.State = next

	stored, err := e.claims.SwapClaim(ctx, from, current.Version, updated)
	if err != nil {
		return ProfitClaim{}, err
	}
	if from != next.Status() {
		metrics.ClaimTransitions.WithLabelValues(string(from), string(next.Status())).Inc()
	}
	e.log.WithFields(logrus.Fields{
		"claim_id":        stored.ID,
		"distribution_id": stored.DistributionID,
		"user_id":         stored.UserID,
		"from":            from,
		"to":              stored.Status(),
		"version":         stored.Version,
	}).Info("Claim state changed")
	e.record(ctx, actor, action, entityTypeClaim, stored.ID, claimSnapshot(current), claimSnapshot(stored))
	return stored, nil
}

// legalTransition lists the only status changes a claim may make.
func legalTransition(from, to ClaimStatus) bool {
	switch {
	case from == ClaimPending && to == ClaimProcessing:
		return true
	case from == ClaimProcessing && to == ClaimCompleted:
		return true
	case from == ClaimProcessing && to == ClaimPending:
		return true
	}
	return false
}

// MaskAccount hides all but the last four characters of a bank account.
func MaskAccount(account string) string {
	account = strings.TrimSpace(account)
	if len(account) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(account)-4) + account[len(account)-4:]
}
