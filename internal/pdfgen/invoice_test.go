package pdfgen_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/ledger/internal/clock"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	"github.com/clinicore/ledger/internal/pdfgen"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoicePDFRendersDocument(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC))
	gen := pdfgen.New(fake)

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	issueDate := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	dueDate := issueDate.AddDate(0, 0, 30)
	inv := invoicedomain.Invoice{
		ID:            node.Generate(),
		InvoiceNumber: "INV-2025-00042",
		PatientID:     node.Generate(),
		IssueDate:     issueDate,
		DueDate:       &dueDate,
		Subtotal:      decimal.RequireFromString("125.00"),
		TaxAmount:     decimal.RequireFromString("12.50"),
		Discount:      decimal.RequireFromString("5.00"),
		TotalAmount:   decimal.RequireFromString("132.50"),
		AmountPaid:    decimal.RequireFromString("50.00"),
		Balance:       decimal.RequireFromString("82.50"),
		Status:        invoicedomain.InvoiceStatusPartial,
		CreatedBy:     "front-desk",
	}
	items := []invoicedomain.InvoiceItem{
		{
			ID:          node.Generate(),
			InvoiceID:   inv.ID,
			Description: "Office visit",
			Quantity:    2,
			UnitPrice:   decimal.RequireFromString("50.00"),
			LineTotal:   decimal.RequireFromString("100.00"),
		},
		{
			ID:          node.Generate(),
			InvoiceID:   inv.ID,
			Description: "Basic metabolic panel",
			Quantity:    1,
			UnitPrice:   decimal.RequireFromString("25.00"),
			LineTotal:   decimal.RequireFromString("25.00"),
		},
	}

	reader, err := gen.InvoicePDF(context.Background(), inv, items)
	require.NoError(t, err)

	doc, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NotEmpty(t, doc)
	assert.Equal(t, "%PDF", string(doc[:4]))
}
