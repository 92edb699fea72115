// Package domain contains the invoice aggregate. The denormalized money
// fields (subtotal, tax, discount, total, amount paid, balance) are part of
// the record and must reconcile with the line items and payments at all times.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents invoice payment states.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPartial InvoiceStatus = "partial"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPartial, InvoiceStatusPaid:
		return true
	default:
		return false
	}
}

// Invoice is a patient invoice. Invoices are never deleted; payment
// application rewrites amount_paid/balance/status under a row lock, and
// nothing else touches those fields outside an administrative override.
type Invoice struct {
	ID            snowflake.ID    `json:"id" gorm:"primaryKey"`
	InvoiceNumber string          `json:"invoice_number" gorm:"type:text;not null;uniqueIndex"`
	PatientID     snowflake.ID    `json:"patient_id" gorm:"not null;index"`
	EncounterID   *snowflake.ID   `json:"encounter_id" gorm:"index"`
	IssueDate     time.Time       `json:"issue_date" gorm:"not null;index"`
	DueDate       *time.Time      `json:"due_date"`
	Subtotal      decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	TaxAmount     decimal.Decimal `json:"tax_amount" gorm:"type:decimal(12,2);not null"`
	Discount      decimal.Decimal `json:"discount_amount" gorm:"column:discount_amount;type:decimal(12,2);not null"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	AmountPaid    decimal.Decimal `json:"amount_paid" gorm:"type:decimal(12,2);not null"`
	Balance       decimal.Decimal `json:"balance" gorm:"type:decimal(12,2);not null"`
	Status        InvoiceStatus   `json:"status" gorm:"type:text;not null;default:'pending';index"`
	PaymentMethod *string         `json:"payment_method" gorm:"type:text"`
	Notes         *string         `json:"notes" gorm:"type:text"`
	CreatedBy     string          `json:"created_by" gorm:"type:text;not null"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is one billable line. Items are immutable once the invoice is
// created; corrections are modeled as credits on a new invoice, not edits.
type InvoiceItem struct {
	ID              snowflake.ID    `json:"id" gorm:"primaryKey"`
	InvoiceID       snowflake.ID    `json:"invoice_id" gorm:"not null;index"`
	ProcedureCodeID *snowflake.ID   `json:"procedure_code_id" gorm:"index"`
	Description     string          `json:"description" gorm:"type:text;not null"`
	Quantity        int64           `json:"quantity" gorm:"not null"`
	UnitPrice       decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	LineTotal       decimal.Decimal `json:"line_total" gorm:"type:decimal(12,2);not null"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

// DeriveStatus is the single source of truth for invoice status. Every
// mutation path re-derives status through here; callers never set it
// directly except through the administrative override.
//
// Overpayment saturates at paid: a negative balance is recorded as-is and
// does not introduce a separate state.
func DeriveStatus(totalAmount, amountPaid decimal.Decimal) InvoiceStatus {
	balance := totalAmount.Sub(amountPaid)
	switch {
	case balance.LessThanOrEqual(decimal.Zero) && amountPaid.GreaterThan(decimal.Zero):
		return InvoiceStatusPaid
	case amountPaid.GreaterThan(decimal.Zero):
		return InvoiceStatusPartial
	default:
		return InvoiceStatusPending
	}
}
