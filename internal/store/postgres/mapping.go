package postgres

import (
	"fmt"
	"time"

	"profitshare/internal/distribution"
	"profitshare/internal/models"
	"profitshare/pkg/money"
)

func distributionRow(d distribution.ProfitDistribution) models.ProfitDistribution {
	return models.ProfitDistribution{
		ID:                     d.ID,
		ProjectID:              d.ProjectID,
		PeriodStartDate:        d.Period.StartDate.UTC(),
		PeriodEndDate:          d.Period.EndDate.UTC(),
		PeriodQuarter:          d.Period.Quarter,
		PeriodYear:             d.Period.Year,
		TotalProfit:            int64(d.TotalProfit),
		FeeRateBps:             int64(d.FeeRate),
		PlatformFee:            int64(d.PlatformFee),
		DistributedProfit:      int64(d.DistributedProfit),
		ProfitPerToken:         d.ProfitPerToken,
		TotalCirculatingTokens: d.TotalCirculatingTokens,
		HolderCount:            d.HolderCount,
		Status:                 string(d.Status),
		SettlementReference:    d.SettlementReference,
		AdminID:                d.AdminID,
		Notes:                  d.Notes,
		CreatedAt:              d.CreatedAt.UTC(),
		DistributedAt:          d.DistributedAt,
	}
}

func distributionFromRow(row models.ProfitDistribution) distribution.ProfitDistribution {
	return distribution.ProfitDistribution{
		ID:        row.ID,
		ProjectID: row.ProjectID,
		Period: distribution.Period{
			StartDate: row.PeriodStartDate.UTC(),
			EndDate:   row.PeriodEndDate.UTC(),
			Quarter:   row.PeriodQuarter,
			Year:      row.PeriodYear,
		},
		TotalProfit:            money.Amount(row.TotalProfit),
		FeeRate:                money.Rate(row.FeeRateBps),
		PlatformFee:            money.Amount(row.PlatformFee),
		DistributedProfit:      money.Amount(row.DistributedProfit),
		ProfitPerToken:         row.ProfitPerToken,
		TotalCirculatingTokens: row.TotalCirculatingTokens,
		HolderCount:            row.HolderCount,
		Status:                 distribution.DistributionStatus(row.Status),
		SettlementReference:    row.SettlementReference,
		AdminID:                row.AdminID,
		Notes:                  row.Notes,
		CreatedAt:              row.CreatedAt.UTC(),
		DistributedAt:          row.DistributedAt,
	}
}

func claimRow(c distribution.ProfitClaim) models.ProfitClaim {
	row := models.ProfitClaim{
		ID:              c.ID,
		UserID:          c.UserID,
		ProjectID:       c.ProjectID,
		DistributionID:  c.DistributionID,
		TokenAmount:     c.TokenAmountAtSnapshot,
		ClaimableAmount: int64(c.ClaimableAmount),
		Status:          string(c.Status()),
		Version:         c.Version,
		CreatedAt:       c.CreatedAt.UTC(),
	}
	switch s := c.State.(type) {
	case distribution.ProcessingState:
		row.PaymentID = optional(s.PaymentID)
		row.BankAccount = s.BankAccount
		at := s.ProcessedAt.UTC()
		row.ProcessedAt = &at
	case distribution.CompletedState:
		row.PaymentID = optional(s.Payment.PaymentID)
		row.BankAccount = s.Payment.BankAccount
		row.ProcessedAt = s.Payment.ProcessedAt
		row.ClaimedAmount = int64(s.ClaimedAmount)
		at := s.ClaimedAt.UTC()
		row.ClaimedAt = &at
	}
	return row
}

// stateColumns returns the columns a state transition rewrites.
func stateColumns(row models.ProfitClaim) map[string]any {
	return map[string]any{
		"status":         row.Status,
		"payment_id":     row.PaymentID,
		"bank_account":   row.BankAccount,
		"processed_at":   row.ProcessedAt,
		"claimed_amount": row.ClaimedAmount,
		"claimed_at":     row.ClaimedAt,
	}
}

func claimFromRow(row models.ProfitClaim) (distribution.ProfitClaim, error) {
	c := distribution.ProfitClaim{
		ID:                    row.ID,
		UserID:                row.UserID,
		ProjectID:             row.ProjectID,
		DistributionID:        row.DistributionID,
		TokenAmountAtSnapshot: row.TokenAmount,
		ClaimableAmount:       money.Amount(row.ClaimableAmount),
		Version:               row.Version,
		CreatedAt:             row.CreatedAt.UTC(),
	}
	switch distribution.ClaimStatus(row.Status) {
	case distribution.ClaimPending:
		c.State = distribution.PendingState{}
	case distribution.ClaimProcessing:
		c.State = distribution.ProcessingState{
			BankAccount: row.BankAccount,
			PaymentID:   deref(row.PaymentID),
			ProcessedAt: derefTime(row.ProcessedAt),
		}
	case distribution.ClaimCompleted:
		c.State = distribution.CompletedState{
			Payment: distribution.PaymentDetails{
				PaymentID:   deref(row.PaymentID),
				BankAccount: row.BankAccount,
				ProcessedAt: row.ProcessedAt,
			},
			ClaimedAmount: money.Amount(row.ClaimedAmount),
			ClaimedAt:     derefTime(row.ClaimedAt),
		}
	default:
		return distribution.ProfitClaim{}, fmt.Errorf("claim %s has unknown status %q", row.ID, row.Status)
	}
	return c, nil
}

func claimsFromRows(rows []models.ProfitClaim) ([]distribution.ProfitClaim, error) {
	items := make([]distribution.ProfitClaim, 0, len(rows))
	for _, row := range rows {
		c, err := claimFromRow(row)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
