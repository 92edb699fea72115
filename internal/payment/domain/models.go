// Package domain contains the payment record. Payments are append-only:
// once recorded against an invoice they are never edited or deleted, so the
// payment history always reconciles with the invoice's amount_paid.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Payment is one money receipt applied to an invoice.
type Payment struct {
	ID              snowflake.ID    `json:"id" gorm:"primaryKey"`
	PaymentNumber   string          `json:"payment_number" gorm:"type:text;not null;uniqueIndex"`
	InvoiceID       snowflake.ID    `json:"invoice_id" gorm:"not null;index"`
	PatientID       snowflake.ID    `json:"patient_id" gorm:"not null;index"`
	PaymentDate     time.Time       `json:"payment_date" gorm:"not null;index"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Method          string          `json:"method" gorm:"type:text;not null"`
	ReferenceNumber *string         `json:"reference_number" gorm:"type:text"`
	Notes           *string         `json:"notes" gorm:"type:text"`
	ProcessedBy     string          `json:"processed_by" gorm:"type:text;not null"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }
