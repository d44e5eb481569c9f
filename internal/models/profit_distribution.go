package models

import (
	"time"
)

// ProfitDistribution represents a record in profit_distributions table
type ProfitDistribution struct {
	ID                     string     `gorm:"primaryKey;size:64" json:"id"`
	ProjectID              string     `gorm:"column:project_id;size:64;not null;uniqueIndex:uq_distribution_period,priority:1" json:"project_id"`
	PeriodStartDate        time.Time  `gorm:"column:period_start_date;not null" json:"period_start_date"`
	PeriodEndDate          time.Time  `gorm:"column:period_end_date;not null" json:"period_end_date"`
	PeriodQuarter          int        `gorm:"column:period_quarter;not null;uniqueIndex:uq_distribution_period,priority:2" json:"period_quarter"`
	PeriodYear             int        `gorm:"column:period_year;not null;uniqueIndex:uq_distribution_period,priority:3" json:"period_year"`
	TotalProfit            int64      `gorm:"column:total_profit;not null" json:"total_profit"`
	FeeRateBps             int64      `gorm:"column:fee_rate_bps;not null" json:"fee_rate_bps"`
	PlatformFee            int64      `gorm:"column:platform_fee;not null" json:"platform_fee"`
	DistributedProfit      int64      `gorm:"column:distributed_profit;not null" json:"distributed_profit"`
	ProfitPerToken         string     `gorm:"column:profit_per_token;type:numeric(30,8);not null" json:"profit_per_token"`
	TotalCirculatingTokens int64      `gorm:"column:total_circulating_tokens;not null" json:"total_circulating_tokens"`
	HolderCount            int        `gorm:"column:holder_count;not null" json:"holder_count"`
	Status                 string     `gorm:"column:status;size:20;not null;index" json:"status"`
	SettlementReference    string     `gorm:"column:settlement_reference;size:128;default:''" json:"settlement_reference"`
	AdminID                string     `gorm:"column:admin_id;size:64;not null" json:"admin_id"`
	Notes                  string     `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt              time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	DistributedAt          *time.Time `gorm:"column:distributed_at" json:"distributed_at"`
}

func (ProfitDistribution) TableName() string {
	return "profit_distributions"
}
