// Package domain contains the audit trail models. Financial mutations are
// recorded append-only; audit rows are never updated or deleted.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	ActorID    *string           `json:"actor_id" gorm:"type:text;index"`
	Action     string            `json:"action" gorm:"type:text;not null;index"`
	TargetType string            `json:"target_type" gorm:"type:text;not null"`
	TargetID   *string           `json:"target_id" gorm:"type:text;index"`
	Metadata   datatypes.JSONMap `json:"metadata" gorm:"not null"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;index"`
}

func (AuditLog) TableName() string { return "audit_logs" }
