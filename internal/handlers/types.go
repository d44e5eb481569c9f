package handlers

import (
	"time"

	"profitshare/internal/distribution"
)

// PeriodRequest is the fiscal quarter of a new distribution. Dates are RFC 3339.
type PeriodRequest struct {
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required,gtfield=StartDate"`
	Quarter   int       `json:"quarter" binding:"required,quarter"`
	Year      int       `json:"year" binding:"required,gt=0"`
}

// CreateDistributionRequest represents the request body for declaring a quarter's profit
type CreateDistributionRequest struct {
	ProjectID   string        `json:"project_id" binding:"required,max=64"`
	Period      PeriodRequest `json:"period"`
	TotalProfit string        `json:"total_profit" binding:"required"`
	Notes       string        `json:"notes" binding:"max=2000"`
}

// SettlementReferenceRequest attaches the bank reference of the funded payout
type SettlementReferenceRequest struct {
	Reference string `json:"settlement_reference" binding:"required,max=128"`
}

// ClaimRequest carries the bank account a claim is paid to
type ClaimRequest struct {
	BankAccount   string `json:"bank_account" binding:"required,max=64"`
	AccountHolder string `json:"account_holder" binding:"max=128"`
	BankCode      string `json:"bank_code" binding:"max=32"`
}

type DistributionResponse struct {
	ID                     string              `json:"id"`
	ProjectID              string              `json:"project_id"`
	Period                 distribution.Period `json:"period"`
	TotalProfit            string              `json:"total_profit"`
	FeeRate                string              `json:"fee_rate"`
	PlatformFee            string              `json:"platform_fee"`
	DistributedProfit      string              `json:"distributed_profit"`
	ProfitPerToken         string              `json:"profit_per_token"`
	TotalCirculatingTokens int64               `json:"total_circulating_tokens"`
	HolderCount            int                 `json:"holder_count"`
	Status                 string              `json:"status"`
	SettlementReference    string              `json:"settlement_reference,omitempty"`
	AdminID                string              `json:"admin_id"`
	Notes                  string              `json:"notes,omitempty"`
	CreatedAt              time.Time           `json:"created_at"`
	DistributedAt          *time.Time          `json:"distributed_at,omitempty"`
}

func toDistributionResponse(d distribution.ProfitDistribution) DistributionResponse {
	return DistributionResponse{
		ID:                     d.ID,
		ProjectID:              d.ProjectID,
		Period:                 d.Period,
		TotalProfit:            d.TotalProfit.String(),
		FeeRate:                d.FeeRate.String(),
		PlatformFee:            d.PlatformFee.String(),
		DistributedProfit:      d.DistributedProfit.String(),
		ProfitPerToken:         d.ProfitPerToken,
		TotalCirculatingTokens: d.TotalCirculatingTokens,
		HolderCount:            d.HolderCount,
		Status:                 string(d.Status),
		SettlementReference:    d.SettlementReference,
		AdminID:                d.AdminID,
		Notes:                  d.Notes,
		CreatedAt:              d.CreatedAt,
		DistributedAt:          d.DistributedAt,
	}
}

type PaymentDetailsResponse struct {
	PaymentID   string     `json:"payment_id,omitempty"`
	BankAccount string     `json:"bank_account"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

type ClaimResponse struct {
	ID              string                  `json:"id"`
	UserID          string                  `json:"user_id"`
	ProjectID       string                  `json:"project_id"`
	DistributionID  string                  `json:"distribution_id"`
	TokenAmount     int64                   `json:"token_amount"`
	ClaimableAmount string                  `json:"claimable_amount"`
	ClaimedAmount   string                  `json:"claimed_amount"`
	Status          string                  `json:"status"`
	PaymentDetails  *PaymentDetailsResponse `json:"payment_details,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	ClaimedAt       *time.Time              `json:"claimed_at,omitempty"`
}

func toClaimResponse(c distribution.ProfitClaim) ClaimResponse {
	resp := ClaimResponse{
		ID:              c.ID,
		UserID:          c.UserID,
		ProjectID:       c.ProjectID,
		DistributionID:  c.DistributionID,
		TokenAmount:     c.TokenAmountAtSnapshot,
		ClaimableAmount: c.ClaimableAmount.String(),
		ClaimedAmount:   c.ClaimedAmount().String(),
		Status:          string(c.Status()),
		CreatedAt:       c.CreatedAt,
		ClaimedAt:       c.ClaimedAt(),
	}
	if p := c.PaymentDetails(); p != nil {
		resp.PaymentDetails = &PaymentDetailsResponse{
			PaymentID:   p.PaymentID,
			BankAccount: distribution.MaskAccount(p.BankAccount),
			ProcessedAt: p.ProcessedAt,
		}
	}
	return resp
}

func toClaimResponses(claims []distribution.ProfitClaim) []ClaimResponse {
	out := make([]ClaimResponse, 0, len(claims))
	for _, c := range claims {
		out = append(out, toClaimResponse(c))
	}
	return out
}

type ReconciliationResponse struct {
	DistributionID    string    `json:"distribution_id"`
	DistributedProfit string    `json:"distributed_profit"`
	TotalClaimable    string    `json:"total_claimable"`
	TotalClaimed      string    `json:"total_claimed"`
	ClaimCount        int       `json:"claim_count"`
	PendingCount      int       `json:"pending_count"`
	ProcessingCount   int       `json:"processing_count"`
	CompletedCount    int       `json:"completed_count"`
	Complete          bool      `json:"complete"`
	Balanced          bool      `json:"balanced"`
	Discrepancy       string    `json:"discrepancy"`
	Alerts            []string  `json:"alerts"`
	CheckedAt         time.Time `json:"checked_at"`
}

func toReconciliationResponse(r distribution.ReconciliationReport) ReconciliationResponse {
	alerts := r.Alerts
	if alerts == nil {
		alerts = []string{}
	}
	return ReconciliationResponse{
		DistributionID:    r.DistributionID,
		DistributedProfit: r.DistributedProfit.String(),
		TotalClaimable:    r.TotalClaimable.String(),
		TotalClaimed:      r.TotalClaimed.String(),
		ClaimCount:        r.ClaimCount,
		PendingCount:      r.PendingCount,
		ProcessingCount:   r.ProcessingCount,
		CompletedCount:    r.CompletedCount,
		Complete:          r.Complete,
		Balanced:          r.Balanced,
		Discrepancy:       r.Discrepancy.String(),
		Alerts:            alerts,
		CheckedAt:         r.CheckedAt,
	}
}

// CursorPagination describes the position of a page in a cursor listing
type CursorPagination struct {
	PageSize   int    `json:"page_size"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasNext    bool   `json:"has_next"`
}
