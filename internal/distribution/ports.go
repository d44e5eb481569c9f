package distribution

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DistributionStore persists distributions. ReservePeriod must be a single
// conditional insert on (project_id, quarter, year).
type DistributionStore interface {
	ReservePeriod(ctx context.Context, d ProfitDistribution) error
	ReleasePeriod(ctx context.Context, distributionID string) error
	MarkDistributed(ctx context.Context, distributionID string, at time.Time) error
	AttachSettlementReference(ctx context.Context, distributionID, reference string) error
	GetDistribution(ctx context.Context, distributionID string) (ProfitDistribution, error)
	ListDistributionsByProject(ctx context.Context, projectID string, page PageRequest) (DistributionPage, error)
	ListDistributionsByStatus(ctx context.Context, status DistributionStatus) ([]ProfitDistribution, error)
}

// ClaimStore persists claims. SwapClaim replaces a claim only when the stored
// row still has the expected status and version, and bumps the version.
type ClaimStore interface {
	UpsertClaim(ctx context.Context, c ProfitClaim) error
	GetClaim(ctx context.Context, claimID string) (ProfitClaim, error)
	FindClaimByPaymentID(ctx context.Context, paymentID string) (ProfitClaim, error)
	ListClaimsByUser(ctx context.Context, userID string, page PageRequest) (ClaimPage, error)
	ListClaimsByDistribution(ctx context.Context, distributionID string) ([]ProfitClaim, error)
	SwapClaim(ctx context.Context, expected ClaimStatus, expectedVersion int64, next ProfitClaim) (ProfitClaim, error)
}

// Ledger is the read-only investment ledger.
type Ledger interface {
	GetCompletedHoldings(ctx context.Context, projectID string) ([]Holding, error)
}

// PaymentGateway initiates bank transfers. Completion is reported later through
// a PaymentNotification.
type PaymentGateway interface {
	Initiate(ctx context.Context, req TransferRequest) (paymentID string, err error)
}

// AuditSink receives immutable audit records.
type AuditSink interface {
	Record(ctx context.Context, rec AuditRecord) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints distribution and audit ids.
type IDGenerator interface {
	NewID() string
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.NewString() }

// PageRequest asks for one page of a cursor-paginated listing.
type PageRequest struct {
	Cursor string
	Limit  int
}

// DistributionPage is one page of distributions.
type DistributionPage struct {
	Items      []ProfitDistribution
	NextCursor string
}

// ClaimPage is one page of claims.
type ClaimPage struct {
	Items      []ProfitClaim
	NextCursor string
}
