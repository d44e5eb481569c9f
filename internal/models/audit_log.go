package models

import (
	"time"
)

// AuditLog represents a record in audit_logs table. Rows are only ever inserted.
type AuditLog struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Actor       string    `gorm:"column:actor;size:64;not null" json:"actor"`
	Action      string    `gorm:"column:action;size:64;not null;index" json:"action"`
	EntityType  string    `gorm:"column:entity_type;size:32;not null" json:"entity_type"`
	EntityID    string    `gorm:"column:entity_id;size:160;not null;index" json:"entity_id"`
	BeforeState JSONMap   `gorm:"column:before_state;type:jsonb" json:"before_state"`
	AfterState  JSONMap   `gorm:"column:after_state;type:jsonb" json:"after_state"`
	CreatedAt   time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
