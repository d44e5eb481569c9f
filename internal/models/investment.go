package models

import (
	"time"
)

// InvestmentStatusCompleted marks an investment whose tokens are in circulation.
const InvestmentStatusCompleted = "completed"

// Investment is a row of the investments table owned by the investment
// service. This module only reads it.
type Investment struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	ProjectID   string    `gorm:"column:project_id;size:64;not null;index" json:"project_id"`
	UserID      string    `gorm:"column:user_id;size:64;not null" json:"user_id"`
	TokenAmount int64     `gorm:"column:token_amount;not null" json:"token_amount"`
	Status      string    `gorm:"column:status;size:20;not null" json:"status"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Investment) TableName() string {
	return "investments"
}
