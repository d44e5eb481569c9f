package models

import (
	"time"
)

// ProfitClaim represents a record in profit_claims table. Payment columns are
// empty while the claim is pending.
type ProfitClaim struct {
	ID              string     `gorm:"primaryKey;size:160" json:"id"`
	UserID          string     `gorm:"column:user_id;size:64;not null;index:idx_claims_user_created,priority:1" json:"user_id"`
	ProjectID       string     `gorm:"column:project_id;size:64;not null" json:"project_id"`
	DistributionID  string     `gorm:"column:distribution_id;size:64;not null;index" json:"distribution_id"`
	TokenAmount     int64      `gorm:"column:token_amount;not null" json:"token_amount"`
	ClaimableAmount int64      `gorm:"column:claimable_amount;not null" json:"claimable_amount"`
	ClaimedAmount   int64      `gorm:"column:claimed_amount;not null;default:0" json:"claimed_amount"`
	Status          string     `gorm:"column:status;size:20;not null" json:"status"`
	PaymentID       *string    `gorm:"column:payment_id;size:128;uniqueIndex" json:"payment_id"`
	BankAccount     string     `gorm:"column:bank_account;size:255;default:''" json:"bank_account"`
	ProcessedAt     *time.Time `gorm:"column:processed_at" json:"processed_at"`
	ClaimedAt       *time.Time `gorm:"column:claimed_at" json:"claimed_at"`
	Version         int64      `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null;index:idx_claims_user_created,priority:2" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ProfitClaim) TableName() string {
	return "profit_claims"
}
