package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type RecordPaymentRequest struct {
	InvoiceID       snowflake.ID
	Amount          decimal.Decimal
	Method          string
	PaymentDate     *time.Time
	ReferenceNumber string
	Notes           string
	ProcessedBy     string
}

type ListPaymentRequest struct {
	InvoiceID *snowflake.ID
	PatientID *snowflake.ID
}

// Service records payments and reads the payment history. Recording is a
// thin orchestration over the invoice ledger, which owns the transaction
// that writes the payment and rewrites the invoice aggregate.
type Service interface {
	Record(ctx context.Context, req RecordPaymentRequest) (Payment, error)
	List(ctx context.Context, req ListPaymentRequest) ([]Payment, error)
	GetByID(ctx context.Context, id snowflake.ID) (Payment, error)
}

var (
	ErrPaymentNotFound = errors.New("payment_not_found")
	ErrInvalidMethod   = errors.New("invalid_payment_method")
)
