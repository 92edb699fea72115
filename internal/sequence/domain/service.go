package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Kind identifies the document family a number belongs to. Each kind gets its
// own counter per calendar year.
type Kind string

const (
	KindInvoice      Kind = "invoice"
	KindPayment      Kind = "payment"
	KindClaim        Kind = "claim"
	KindLabOrder     Kind = "lab_order"
	KindImagingOrder Kind = "imaging_order"
)

var prefixes = map[Kind]string{
	KindInvoice:      "INV",
	KindPayment:      "PAY",
	KindClaim:        "CLM",
	KindLabOrder:     "LAB",
	KindImagingOrder: "IMG",
}

func (k Kind) Prefix() (string, bool) {
	prefix, ok := prefixes[k]
	return prefix, ok
}

// Allocator issues document numbers. Numbers for a (kind, year) are strictly
// increasing and never reused; gaps from aborted transactions are acceptable.
type Allocator interface {
	// Next allocates a number in its own transaction. Year 0 means the
	// current calendar year.
	Next(ctx context.Context, kind Kind, year int) (string, error)
	// NextInTx allocates a number inside the caller's transaction so the
	// parent document and its number commit or roll back together.
	NextInTx(ctx context.Context, tx *gorm.DB, kind Kind, year int) (string, error)
}

var (
	ErrUnknownKind = errors.New("unknown_document_kind")
	// ErrStorageUnavailable means the counter store could not be reached or
	// written. Callers must not create the parent document without a number.
	ErrStorageUnavailable = errors.New("sequence_storage_unavailable")
)
