// Package ledger reads completed token holdings from the investments table.
package ledger

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"profitshare/internal/distribution"
	"profitshare/internal/models"
)

// GormLedger is the read-only investment ledger backed by the investments table.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

type holdingRow struct {
	UserID      string
	TokenAmount int64
}

// GetCompletedHoldings sums the token amount of every completed investment
// per user in the project.
func (l *GormLedger) GetCompletedHoldings(ctx context.Context, projectID string) ([]distribution.Holding, error) {
	var rows []holdingRow
	err := l.db.WithContext(ctx).
		Model(&models.Investment{}).
		Select("user_id, SUM(token_amount) AS token_amount").
		Where("project_id = ? AND status = ?", projectID, models.InvestmentStatusCompleted).
		Group("user_id").
		Having("SUM(token_amount) > 0").
		Order("user_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query completed holdings for project %s: %w", projectID, err)
	}

	holdings := make([]distribution.Holding, 0, len(rows))
	for _, row := range rows {
		holdings = append(holdings, distribution.Holding{UserID: row.UserID, TokenAmount: row.TokenAmount})
	}
	return holdings, nil
}

var _ distribution.Ledger = (*GormLedger)(nil)
