// Package domain contains the billing code reference data. The ledger reads
// these to default line item descriptions and prices; nothing here is mutated
// outside of seeding.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ProcedureCode is a CPT-style billable procedure with a standard price.
type ProcedureCode struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	Code        string          `json:"code" gorm:"type:text;not null;uniqueIndex"`
	Description string          `json:"description" gorm:"type:text;not null"`
	Category    string          `json:"category" gorm:"type:text;index"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	IsActive    bool            `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null"`
}

func (ProcedureCode) TableName() string { return "procedure_codes" }

// DiagnosisCode is an ICD-10-style diagnosis code.
type DiagnosisCode struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	Code        string       `json:"code" gorm:"type:text;not null;uniqueIndex"`
	Description string       `json:"description" gorm:"type:text;not null"`
	Category    string       `json:"category" gorm:"type:text;index"`
	IsActive    bool         `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
}

func (DiagnosisCode) TableName() string { return "diagnosis_codes" }
