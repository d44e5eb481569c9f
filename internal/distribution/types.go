package distribution

import (
	"fmt"
	"time"

	"profitshare/pkg/money"
)

// DistributionStatus is the lifecycle status of a ProfitDistribution.
type DistributionStatus string

const (
	// DistributionCalculated means the period is reserved and claims are being written.
	DistributionCalculated DistributionStatus = "calculated"
	// DistributionDistributed means every claim for the snapshot exists.
	DistributionDistributed DistributionStatus = "distributed"
)

// Period identifies the fiscal quarter a distribution covers.
type Period struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Quarter   int       `json:"quarter"`
	Year      int       `json:"year"`
}

// Key returns the natural key used for period uniqueness.
func (p Period) Key(projectID string) string {
	return fmt.Sprintf("%s:%d:Q%d", projectID, p.Year, p.Quarter)
}

// ProfitDistribution is one admin-declared profit-sharing event for a project
// and quarter. It is append-only apart from the status flip and the settlement
// reference.
type ProfitDistribution struct {
	ID                     string
	ProjectID              string
	Period                 Period
	TotalProfit            money.Amount
	FeeRate                money.Rate
	PlatformFee            money.Amount
	DistributedProfit      money.Amount
	ProfitPerToken         string
	TotalCirculatingTokens int64
	HolderCount            int
	Status                 DistributionStatus
	SettlementReference    string
	AdminID                string
	Notes                  string
	CreatedAt              time.Time
	DistributedAt          *time.Time
}

// ClaimStatus is the lifecycle status of a ProfitClaim.
type ClaimStatus string

const (
	ClaimPending    ClaimStatus = "pending"
	ClaimProcessing ClaimStatus = "processing"
	ClaimCompleted  ClaimStatus = "completed"
)

// PaymentDetails records the transfer that settles a claim.
type PaymentDetails struct {
	PaymentID   string     `json:"payment_id"`
	BankAccount string     `json:"bank_account"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// ClaimState carries the status-specific fields of a claim. Only the variant
// matching the status exists, so a pending claim cannot hold a claimed amount.
type ClaimState interface {
	Status() ClaimStatus
}

// PendingState is the initial state: nothing has been paid.
type PendingState struct{}

func (PendingState) Status() ClaimStatus { return ClaimPending }

// ProcessingState means a transfer was requested. PaymentID is empty until the
// gateway acknowledges the initiation.
type ProcessingState struct {
	BankAccount string
	PaymentID   string
	ProcessedAt time.Time
}

func (ProcessingState) Status() ClaimStatus { return ClaimProcessing }

// CompletedState is terminal: the full claimable amount was paid out.
type CompletedState struct {
	Payment       PaymentDetails
	ClaimedAmount money.Amount
	ClaimedAt     time.Time
}

func (CompletedState) Status() ClaimStatus { return ClaimCompleted }

// ProfitClaim is one holder's entitlement to a share of a distribution.
type ProfitClaim struct {
	ID                    string
	UserID                string
	ProjectID             string
	DistributionID        string
	TokenAmountAtSnapshot int64
	ClaimableAmount       money.Amount
	State                 ClaimState
	Version               int64
	CreatedAt             time.Time
}

// ClaimID derives the claim key from its distribution and holder.
func ClaimID(distributionID, userID string) string {
	return distributionID + "_" + userID
}

// Status returns the status of the current state variant.
func (c ProfitClaim) Status() ClaimStatus {
	if c.State == nil {
		return ClaimPending
	}
	return c.State.Status()
}

// ClaimedAmount is zero until the claim is completed.
func (c ProfitClaim) ClaimedAmount() money.Amount {
	if s, ok := c.State.(CompletedState); ok {
		return s.ClaimedAmount
	}
	return 0
}

// ClaimedAt is nil until the claim is completed.
func (c ProfitClaim) ClaimedAt() *time.Time {
	if s, ok := c.State.(CompletedState); ok {
		t := s.ClaimedAt
		return &t
	}
	return nil
}

// PaymentDetails returns the payment artifact attached to the claim, if any.
func (c ProfitClaim) PaymentDetails() *PaymentDetails {
	switch s := c.State.(type) {
	case ProcessingState:
		at := s.ProcessedAt
		return &PaymentDetails{PaymentID: s.PaymentID, BankAccount: s.BankAccount, ProcessedAt: &at}
	case CompletedState:
		p := s.Payment
		return &p
	default:
		return nil
	}
}

// Holding is a holder's completed token position read from the ledger.
type Holding struct {
	UserID      string
	TokenAmount int64
}

// BankDetails is where a claim should be paid.
type BankDetails struct {
	AccountNumber string
	AccountHolder string
	BankCode      string
}

// TransferRequest is sent to the payment gateway to pay out a claim.
type TransferRequest struct {
	ClaimID     string
	UserID      string
	Amount      money.Amount
	Currency    string
	BankDetails BankDetails
}

// PaymentNotificationStatus is the outcome reported by the gateway.
type PaymentNotificationStatus string

const (
	PaymentCompleted PaymentNotificationStatus = "completed"
	PaymentFailed    PaymentNotificationStatus = "failed"
)

// PaymentNotification is the asynchronous completion or failure notice for a
// transfer. ClaimID echoes the reference sent with the transfer and locates
// the claim when the payment id has not been stored on it yet.
type PaymentNotification struct {
	PaymentID string                    `json:"payment_id"`
	ClaimID   string                    `json:"claim_id,omitempty"`
	Status    PaymentNotificationStatus `json:"status"`
	Reason    string                    `json:"reason,omitempty"`
}

// AuditRecord is an immutable trail entry for a financial mutation.
type AuditRecord struct {
	ID          string         `json:"id"`
	Actor       string         `json:"actor"`
	Action      string         `json:"action"`
	EntityType  string         `json:"entity_type"`
	EntityID    string         `json:"entity_id"`
	BeforeState map[string]any `json:"before_state,omitempty"`
	AfterState  map[string]any `json:"after_state,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Audit actions.
const (
	ActionDistributionCreated   = "distribution.created"
	ActionDistributionReleased  = "distribution.released"
	ActionSettlementReference   = "distribution.settlement_reference"
	ActionClaimProcessing       = "claim.processing"
	ActionClaimPaymentInitiated = "claim.payment_initiated"
	ActionClaimRolledBack       = "claim.rolled_back"
	ActionClaimCompleted        = "claim.completed"
	ActionClaimPaymentFailed    = "claim.payment_failed"
	ActionReconcileDiscrepancy  = "reconciliation.discrepancy"
)

const (
	systemActor            = "system"
	paymentGatewayActor    = "payment-gateway"
	entityTypeDistribution = "profit_distribution"
	entityTypeClaim        = "profit_claim"
)

// ReconciliationReport summarises how much of a distribution has been settled.
type ReconciliationReport struct {
	DistributionID    string       `json:"distribution_id"`
	DistributedProfit money.Amount `json:"distributed_profit"`
	TotalClaimable    money.Amount `json:"total_claimable"`
	TotalClaimed      money.Amount `json:"total_claimed"`
	ClaimCount        int          `json:"claim_count"`
	PendingCount      int          `json:"pending_count"`
	ProcessingCount   int          `json:"processing_count"`
	CompletedCount    int          `json:"completed_count"`
	Complete          bool         `json:"complete"`
	Balanced          bool         `json:"balanced"`
	Discrepancy       money.Amount `json:"discrepancy"`
	Alerts            []string     `json:"alerts,omitempty"`
	CheckedAt         time.Time    `json:"checked_at"`
}

func claimSnapshot(c ProfitClaim) map[string]any {
	out := map[string]any{
		"status":           string(c.Status()),
		"claimable_amount": int64(c.ClaimableAmount),
		"claimed_amount":   int64(c.ClaimedAmount()),
		"version":          c.Version,
	}
	if p := c.PaymentDetails(); p != nil {
		out["payment_id"] = p.PaymentID
		out["bank_account"] = MaskAccount(p.BankAccount)
	}
	if at := c.ClaimedAt(); at != nil {
		out["claimed_at"] = at.UTC().Format(time.RFC3339Nano)
	}
	return out
}

func distributionSnapshot(d ProfitDistribution) map[string]any {
	return map[string]any{
		"status":               string(d.Status),
		"project_id":           d.ProjectID,
		"quarter":              d.Period.Quarter,
		"year":                 d.Period.Year,
		"total_profit":         int64(d.TotalProfit),
		"platform_fee":         int64(d.PlatformFee),
		"distributed_profit":   int64(d.DistributedProfit),
		"profit_per_token":     d.ProfitPerToken,
		"circulating_tokens":   d.TotalCirculatingTokens,
		"holder_count":         d.HolderCount,
		"settlement_reference": d.SettlementReference,
	}
}
