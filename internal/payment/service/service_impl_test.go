package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/clinicore/ledger/internal/audit/domain"
	auditrepository "github.com/clinicore/ledger/internal/audit/repository"
	auditservice "github.com/clinicore/ledger/internal/audit/service"
	catalogdomain "github.com/clinicore/ledger/internal/catalog/domain"
	catalogservice "github.com/clinicore/ledger/internal/catalog/service"
	"github.com/clinicore/ledger/internal/clock"
	"github.com/clinicore/ledger/internal/config"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	invoiceservice "github.com/clinicore/ledger/internal/invoice/service"
	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	paymentservice "github.com/clinicore/ledger/internal/payment/service"
	sequencedomain "github.com/clinicore/ledger/internal/sequence/domain"
	sequenceservice "github.com/clinicore/ledger/internal/sequence/service"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	clock    *clock.FakeClock
	node     *snowflake.Node
	invoices invoicedomain.Service
	payments paymentdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&sequencedomain.DocumentSequence{},
		&catalogdomain.ProcedureCode{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&paymentdomain.Payment{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 4, 10, 8, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	invoices := invoiceservice.NewService(invoiceservice.Params{
		DB:      db,
		Log:     log,
		GenID:   node,
		Clock:   fake,
		Billing: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		Sequence: sequenceservice.NewService(sequenceservice.Params{
			DB: db, Log: log, Clock: fake,
		}),
		Catalog: catalogservice.NewService(catalogservice.Params{
			DB: db, Log: log,
		}),
		Audit: auditservice.NewService(auditservice.Params{
			DB: db, Log: log, GenID: node, Clock: fake, Repo: auditrepository.Provide(),
		}),
	})

	payments := paymentservice.NewService(paymentservice.Params{
		DB: db, Log: log, Invoice: invoices,
	})

	return &fixture{db: db, clock: fake, node: node, invoices: invoices, payments: payments}
}

func money(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func (f *fixture) createInvoice(t *testing.T, total string) invoicedomain.Invoice {
	t.Helper()
	price := money(t, total)
	inv, err := f.invoices.Create(context.Background(), invoicedomain.CreateInvoiceRequest{
		PatientID: f.node.Generate(),
		Items: []invoicedomain.CreateItemRequest{
			{Description: "Consultation", Quantity: 1, UnitPrice: &price},
		},
		CreatedBy: "dr.adams",
	})
	require.NoError(t, err)
	return inv
}

func TestRecordUpdatesInvoice(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t, "80.00")

	pay, err := f.payments.Record(context.Background(), paymentdomain.RecordPaymentRequest{
		InvoiceID:       inv.ID,
		Amount:          money(t, "80.00"),
		Method:          "insurance",
		ReferenceNumber: "EOB-4410",
		ProcessedBy:     "billing",
	})
	require.NoError(t, err)
	assert.Equal(t, "PAY-2025-00001", pay.PaymentNumber)
	assert.Equal(t, inv.PatientID, pay.PatientID)
	require.NotNil(t, pay.ReferenceNumber)
	assert.Equal(t, "EOB-4410", *pay.ReferenceNumber)

	got, _, err := f.invoices.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, got.Status)
}

func TestRecordRejectsMissingInvoice(t *testing.T) {
	f := newFixture(t)

	_, err := f.payments.Record(context.Background(), paymentdomain.RecordPaymentRequest{
		InvoiceID:   f.node.Generate(),
		Amount:      money(t, "10.00"),
		Method:      "cash",
		ProcessedBy: "billing",
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
}

func TestRecordRejectsEmptyMethod(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t, "80.00")

	_, err := f.payments.Record(context.Background(), paymentdomain.RecordPaymentRequest{
		InvoiceID:   inv.ID,
		Amount:      money(t, "10.00"),
		ProcessedBy: "billing",
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidMethod)
}

func TestListFiltersAndOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.createInvoice(t, "300.00")
	second := f.createInvoice(t, "100.00")

	for _, amount := range []string{"100.00", "150.00"} {
		_, err := f.payments.Record(ctx, paymentdomain.RecordPaymentRequest{
			InvoiceID: first.ID, Amount: money(t, amount), Method: "card", ProcessedBy: "billing",
		})
		require.NoError(t, err)
		f.clock.Advance(time.Hour)
	}
	_, err := f.payments.Record(ctx, paymentdomain.RecordPaymentRequest{
		InvoiceID: second.ID, Amount: money(t, "100.00"), Method: "cash", ProcessedBy: "billing",
	})
	require.NoError(t, err)

	byInvoice, err := f.payments.List(ctx, paymentdomain.ListPaymentRequest{InvoiceID: &first.ID})
	require.NoError(t, err)
	require.Len(t, byInvoice, 2)
	// Newest first.
	assert.True(t, money(t, "150.00").Equal(byInvoice[0].Amount))

	byPatient, err := f.payments.List(ctx, paymentdomain.ListPaymentRequest{PatientID: &second.PatientID})
	require.NoError(t, err)
	require.Len(t, byPatient, 1)

	all, err := f.payments.List(ctx, paymentdomain.ListPaymentRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGetByID(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t, "60.00")

	recorded, err := f.payments.Record(context.Background(), paymentdomain.RecordPaymentRequest{
		InvoiceID: inv.ID, Amount: money(t, "60.00"), Method: "card", ProcessedBy: "billing",
	})
	require.NoError(t, err)

	got, err := f.payments.GetByID(context.Background(), recorded.ID)
	require.NoError(t, err)
	assert.Equal(t, recorded.PaymentNumber, got.PaymentNumber)

	_, err = f.payments.GetByID(context.Background(), f.node.Generate())
	assert.ErrorIs(t, err, paymentdomain.ErrPaymentNotFound)
}
