package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	"github.com/shopspring/decimal"
)

// CreateItemRequest is one requested line. A nil UnitPrice together with a
// procedure code means "use the catalog price"; the same applies to an empty
// description.
type CreateItemRequest struct {
	ProcedureCodeID *snowflake.ID
	Description     string
	Quantity        int64
	UnitPrice       *decimal.Decimal
}

type CreateInvoiceRequest struct {
	PatientID      snowflake.ID
	EncounterID    *snowflake.ID
	Items          []CreateItemRequest
	TaxRatePercent *decimal.Decimal // nil: billing policy default
	Discount       decimal.Decimal
	DueDate        *time.Time
	Notes          string
	CreatedBy      string
}

type ApplyPaymentRequest struct {
	InvoiceID       snowflake.ID
	Amount          decimal.Decimal
	Method          string
	PaymentDate     *time.Time
	ReferenceNumber string
	Notes           string
	ProcessedBy     string
}

// AdminPatch is the administrative override. Nil fields are left untouched.
type AdminPatch struct {
	Status        *InvoiceStatus
	PaymentMethod *string
	Notes         *string
}

type ListInvoiceRequest struct {
	PatientID *snowflake.ID
	Status    *InvoiceStatus
}

// AgingBucketSummary is one receivables aging bucket roll-up.
type AgingBucketSummary struct {
	Label       string          `json:"label"`
	Invoices    int             `json:"invoices"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	GetByID(ctx context.Context, id snowflake.ID) (Invoice, []InvoiceItem, error)
	List(ctx context.Context, req ListInvoiceRequest) ([]Invoice, error)
	AdministrativeUpdate(ctx context.Context, id snowflake.ID, patch AdminPatch) (Invoice, error)

	// ApplyPayment records a payment and rewrites the aggregate in one
	// transaction, serialized against concurrent payments on the same invoice.
	ApplyPayment(ctx context.Context, req ApplyPaymentRequest) (paymentdomain.Payment, error)

	// AgingSummary rolls outstanding balances into the configured aging buckets.
	AgingSummary(ctx context.Context) ([]AgingBucketSummary, error)
}

var (
	ErrInvalidPatient      = errors.New("invalid_patient")
	ErrNoItems             = errors.New("invoice_requires_items")
	ErrInvalidQuantity     = errors.New("invalid_item_quantity")
	ErrInvalidUnitPrice    = errors.New("invalid_item_unit_price")
	ErrInvalidDiscount     = errors.New("invalid_discount")
	ErrInvalidTaxRate      = errors.New("invalid_tax_rate")
	ErrInvalidStatus       = errors.New("invalid_invoice_status")
	ErrInvoiceNotFound     = errors.New("invoice_not_found")
	ErrInvalidAmount       = errors.New("invalid_payment_amount")
	ErrOverpaymentDenied   = errors.New("overpayment_not_allowed")
	ErrConcurrencyConflict = errors.New("concurrent_update_conflict")
)
