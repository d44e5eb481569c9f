// Package distribution computes quarterly profit distributions, snapshots token
// holders into claims and drives each claim through payment settlement.
package distribution

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"profitshare/pkg/money"
)

// Config holds the engine's tunables. FeeRate is the platform fee applied to
// every distribution. Currency is sent with every transfer request.
type Config struct {
	FeeRate               money.Rate
	Currency              string
	LedgerTimeout         time.Duration
	PaymentTimeout        time.Duration
	AuditTimeout          time.Duration
	ClaimWriteConcurrency int
	ClaimWriteAttempts    int
}

// DefaultConfig returns production defaults with a 5% platform fee.
func DefaultConfig() Config {
	return Config{
		FeeRate:               money.MustParseRate("0.05"),
		Currency:              "USD",
		LedgerTimeout:         10 * time.Second,
		PaymentTimeout:        30 * time.Second,
		AuditTimeout:          5 * time.Second,
		ClaimWriteConcurrency: 16,
		ClaimWriteAttempts:    3,
	}
}

// Deps are the collaborators the engine calls.
type Deps struct {
	Distributions DistributionStore
	Claims        ClaimStore
	Ledger        Ledger
	Payments      PaymentGateway
	Audit         AuditSink
	Clock         Clock
	IDs           IDGenerator
	Logger        logrus.FieldLogger
}

// Engine is the profit distribution and claim settlement service.
type Engine struct {
	cfg           Config
	distributions DistributionStore
	claims        ClaimStore
	ledger        Ledger
	payments      PaymentGateway
	audit         AuditSink
	clock         Clock
	ids           IDGenerator
	log           logrus.FieldLogger
}

// New validates cfg and wires the engine. Clock, IDs, Audit and Logger are optional.
func New(cfg Config, deps Deps) (*Engine, error) {
	if !cfg.FeeRate.Valid() {
		return nil, errors.New("distribution: fee rate must be within [0, 1)")
	}
	if deps.Distributions == nil || deps.Claims == nil || deps.Ledger == nil || deps.Payments == nil {
		return nil, errors.New("distribution: distribution store, claim store, ledger and payment gateway are required")
	}
	if cfg.LedgerTimeout <= 0 {
		cfg.LedgerTimeout = DefaultConfig().LedgerTimeout
	}
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = DefaultConfig().PaymentTimeout
	}
	if cfg.AuditTimeout <= 0 {
		cfg.AuditTimeout = DefaultConfig().AuditTimeout
	}
	if cfg.ClaimWriteConcurrency <= 0 {
		cfg.ClaimWriteConcurrency = DefaultConfig().ClaimWriteConcurrency
	}
	if cfg.ClaimWriteAttempts <= 0 {
		cfg.ClaimWriteAttempts = 1
	}

	e := &Engine{
		cfg:           cfg,
		distributions: deps.Distributions,
		claims:        deps.Claims,
		ledger:        deps.Ledger,
		payments:      deps.Payments,
		audit:         deps.Audit,
		clock:         deps.Clock,
		ids:           deps.IDs,
		log:           deps.Logger,
	}
	if e.clock == nil {
		e.clock = systemClock{}
	}
	if e.ids == nil {
		e.ids = uuidGenerator{}
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	return e, nil
}

// FeeRate returns the platform fee rate the engine was built with.
func (e *Engine) FeeRate() money.Rate { return e.cfg.FeeRate }

// record appends an audit entry. Sink failures are logged and never change
// the outcome of the operation being audited. A sink gets at most
// AuditTimeout, whatever the caller's deadline.
func (e *Engine) record(ctx context.Context, actor, action, entityType, entityID string, before, after map[string]any) {
	if e.audit == nil {
		return
	}
	rec := AuditRecord{
		ID:          e.ids.NewID(),
		Actor:       actor,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		BeforeState: before,
		AfterState:  after,
		Timestamp:   e.clock.Now(),
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.AuditTimeout)
	defer cancel()
	if err := e.audit.Record(ctx, rec); err != nil {
		e.log.WithFields(logrus.Fields{
			"action":    action,
			"entity_id": entityID,
			"error":     err.Error(),
		}).Error("Failed to write audit record")
	}
}

// GetDistribution returns a distribution by id.
func (e *Engine) GetDistribution(ctx context.Context, distributionID string) (ProfitDistribution, error) {
	const op = "get distribution"
	d, err := e.distributions.GetDistribution(ctx, distributionID)
	if err != nil {
		return ProfitDistribution{}, storeError(op, err)
	}
	return d, nil
}

// ListDistributionsByProject pages through a project's distributions, oldest first.
func (e *Engine) ListDistributionsByProject(ctx context.Context, projectID string, page PageRequest) (DistributionPage, error) {
	const op = "list distributions"
	if projectID == "" {
		return DistributionPage{}, validationf(op, "project id is required")
	}
	if _, err := DecodeCursor(page.Cursor); err != nil {
		return DistributionPage{}, newError(KindValidation, op, err)
	}
	res, err := e.distributions.ListDistributionsByProject(ctx, projectID, page.Normalize())
	if err != nil {
		return DistributionPage{}, storeError(op, err)
	}
	return res, nil
}

// GetClaim returns a claim. Non-admin callers may only read their own claims.
func (e *Engine) GetClaim(ctx context.Context, claimID, callerID string, isAdmin bool) (ProfitClaim, error) {
	const op = "get claim"
	c, err := e.claims.GetClaim(ctx, claimID)
	if err != nil {
		return ProfitClaim{}, storeError(op, err)
	}
	if !isAdmin && c.UserID != callerID {
		return ProfitClaim{}, newError(KindAuthorization, op, ErrNotClaimOwner)
	}
	return c, nil
}

// ListClaimsByUser pages through the claims owned by a user.
func (e *Engine) ListClaimsByUser(ctx context.Context, userID string, page PageRequest) (ClaimPage, error) {
	const op = "list claims"
	if userID == "" {
		return ClaimPage{}, validationf(op, "user id is required")
	}
	if _, err := DecodeCursor(page.Cursor); err != nil {
		return ClaimPage{}, newError(KindValidation, op, err)
	}
	res, err := e.claims.ListClaimsByUser(ctx, userID, page.Normalize())
	if err != nil {
		return ClaimPage{}, storeError(op, err)
	}
	return res, nil
}

// ListClaimsByDistribution returns every claim of a distribution.
func (e *Engine) ListClaimsByDistribution(ctx context.Context, distributionID string) ([]ProfitClaim, error) {
	const op = "list distribution claims"
	if _, err := e.distributions.GetDistribution(ctx, distributionID); err != nil {
		return nil, storeError(op, err)
	}
	claims, err := e.claims.ListClaimsByDistribution(ctx, distributionID)
	if err != nil {
		return nil, storeError(op, err)
	}
	return claims, nil
}

// storeError classifies an error returned by a store port.
func storeError(op string, err error) error {
	var typed *Error
	switch {
	case errors.As(err, &typed):
		return err
	case errors.Is(err, ErrDistributionNotFound), errors.Is(err, ErrClaimNotFound):
		return newError(KindNotFound, op, err)
	case errors.Is(err, ErrDuplicateDistribution):
		return newError(KindValidation, op, err)
	case errors.Is(err, ErrInvalidInput):
		return newError(KindValidation, op, err)
	case errors.Is(err, ErrStaleClaim), errors.Is(err, ErrReservationNotFound), errors.Is(err, ErrSettlementReferenceSet):
		return newError(KindStateConflict, op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindTransientDependency, op, err)
	default:
		return newError(KindInternal, op, err)
	}
}
