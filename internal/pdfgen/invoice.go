// Package pdfgen renders printable invoice documents.
package pdfgen

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/clinicore/ledger/internal/clock"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	marotoconfig "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"go.uber.org/fx"
)

const dateLayout = "2006-01-02"

// Generator renders an invoice with its line items as a PDF.
type Generator interface {
	InvoicePDF(ctx context.Context, inv invoicedomain.Invoice, items []invoicedomain.InvoiceItem) (io.Reader, error)
}

var Module = fx.Module("pdfgen",
	fx.Provide(New),
)

type generator struct {
	clinicName string
	clock      clock.Clock
}

func New(clk clock.Clock) Generator {
	return &generator{clinicName: "Clinicore Health", clock: clk}
}

func (g *generator) InvoicePDF(_ context.Context, inv invoicedomain.Invoice, items []invoicedomain.InvoiceItem) (io.Reader, error) {
	cfg := marotoconfig.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, g.clinicName, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	m.AddRow(10,
		text.NewCol(12, "Invoice "+inv.InvoiceNumber, props.Text{
			Size:  13,
			Style: fontstyle.Bold,
		}),
	)

	dueDate := "-"
	if inv.DueDate != nil {
		dueDate = inv.DueDate.Format(dateLayout)
	}
	m.AddRow(18,
		col.New(6).Add(
			text.New("Issue date: "+inv.IssueDate.Format(dateLayout), props.Text{Top: 0, Size: 9}),
			text.New("Due date: "+dueDate, props.Text{Top: 4, Size: 9}),
			text.New("Status: "+string(inv.Status), props.Text{Top: 8, Size: 9}),
		),
		col.New(6).Add(
			text.New("Patient: "+inv.PatientID.String(), props.Text{Top: 0, Size: 9}),
			text.New("Prepared by: "+inv.CreatedBy, props.Text{Top: 4, Size: 9}),
		),
	)

	m.AddRow(8,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, item := range items {
		m.AddRow(8,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", item.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice.StringFixed(2), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.LineTotal.StringFixed(2), props.Text{Size: 9, Align: align.Right}),
		)
	}

	totals := []struct {
		label string
		value string
		bold  bool
	}{
		{"Subtotal", inv.Subtotal.StringFixed(2), false},
		{"Tax", inv.TaxAmount.StringFixed(2), false},
		{"Discount", inv.Discount.StringFixed(2), false},
		{"Total", inv.TotalAmount.StringFixed(2), true},
		{"Amount paid", inv.AmountPaid.StringFixed(2), false},
		{"Balance due", inv.Balance.StringFixed(2), true},
	}
	for _, row := range totals {
		style := fontstyle.Normal
		if row.bold {
			style = fontstyle.Bold
		}
		m.AddRow(7,
			col.New(8),
			text.NewCol(2, row.label, props.Text{Size: 9, Style: style}),
			text.NewCol(2, row.value, props.Text{Size: 9, Style: style, Align: align.Right}),
		)
	}

	m.AddRow(10,
		text.NewCol(12, "Generated "+g.clock.Now().UTC().Format(dateLayout), props.Text{Size: 7, Top: 4}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
