package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/clinicore/ledger/internal/audit/domain"
	catalogdomain "github.com/clinicore/ledger/internal/catalog/domain"
	"github.com/clinicore/ledger/internal/clock"
	"github.com/clinicore/ledger/internal/config"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	sequencedomain "github.com/clinicore/ledger/internal/sequence/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Billing  *config.BillingConfigHolder
	Sequence sequencedomain.Allocator
	Catalog  catalogdomain.Service
	Audit    auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	billing  *config.BillingConfigHolder
	sequence sequencedomain.Allocator
	catalog  catalogdomain.Service
	audit    auditdomain.Service
}

func NewService(p Params) invoicedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("invoice.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		billing:  p.Billing,
		sequence: p.Sequence,
		catalog:  p.Catalog,
		audit:    p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	if req.PatientID == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidPatient
	}
	if len(req.Items) == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrNoItems
	}
	if req.Discount.IsNegative() {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidDiscount
	}

	policy := s.billing.Current()
	taxRate := decimal.NewFromFloat(policy.DefaultTaxRatePercent)
	if req.TaxRatePercent != nil {
		taxRate = *req.TaxRatePercent
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidTaxRate
	}

	// Resolve catalog defaults before opening the transaction so lookups do
	// not extend the write lock window.
	items, subtotal, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	taxAmount := subtotal.Mul(taxRate).Div(hundred).Round(2)
	totalAmount := subtotal.Add(taxAmount).Sub(req.Discount).Round(2)
	if totalAmount.IsNegative() {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidDiscount
	}

	now := s.clock.Now()
	inv := invoicedomain.Invoice{
		ID:          s.genID.Generate(),
		PatientID:   req.PatientID,
		EncounterID: req.EncounterID,
		IssueDate:   now,
		DueDate:     req.DueDate,
		Subtotal:    subtotal,
		TaxAmount:   taxAmount,
		Discount:    req.Discount.Round(2),
		TotalAmount: totalAmount,
		AmountPaid:  decimal.Zero,
		Balance:     totalAmount,
		Status:      invoicedomain.InvoiceStatusPending,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if notes := req.Notes; notes != "" {
		inv.Notes = &notes
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.sequence.NextInTx(ctx, tx, sequencedomain.KindInvoice, 0)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number

		if err := tx.Create(&inv).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].ID = s.genID.Generate()
			items[i].InvoiceID = inv.ID
			items[i].CreatedAt = now
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	targetID := inv.ID.String()
	_ = s.audit.AuditLog(ctx, nil, "invoice.created", "invoice", &targetID, map[string]any{
		"invoice_number": inv.InvoiceNumber,
		"patient_id":     inv.PatientID.String(),
		"total_amount":   inv.TotalAmount.String(),
		"items":          len(items),
	})

	s.log.Info("invoice created",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("total_amount", inv.TotalAmount.String()),
	)
	return inv, nil
}

func (s *Service) buildItems(ctx context.Context, reqs []invoicedomain.CreateItemRequest) ([]invoicedomain.InvoiceItem, decimal.Decimal, error) {
	items := make([]invoicedomain.InvoiceItem, 0, len(reqs))
	subtotal := decimal.Zero

	for _, r := range reqs {
		if r.Quantity < 1 {
			return nil, decimal.Zero, invoicedomain.ErrInvalidQuantity
		}

		description := r.Description
		var unitPrice decimal.Decimal
		switch {
		case r.UnitPrice != nil:
			unitPrice = *r.UnitPrice
		case r.ProcedureCodeID != nil:
			code, err := s.catalog.GetProcedureCode(ctx, *r.ProcedureCodeID)
			if err != nil {
				return nil, decimal.Zero, err
			}
			unitPrice = code.UnitPrice
			if description == "" {
				description = code.Description
			}
		default:
			return nil, decimal.Zero, invoicedomain.ErrInvalidUnitPrice
		}
		if unitPrice.IsNegative() {
			return nil, decimal.Zero, invoicedomain.ErrInvalidUnitPrice
		}

		lineTotal := unitPrice.Mul(decimal.NewFromInt(r.Quantity)).Round(2)
		subtotal = subtotal.Add(lineTotal)

		items = append(items, invoicedomain.InvoiceItem{
			ProcedureCodeID: r.ProcedureCodeID,
			Description:     description,
			Quantity:        r.Quantity,
			UnitPrice:       unitPrice.Round(2),
			LineTotal:       lineTotal,
		})
	}

	return items, subtotal.Round(2), nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (invoicedomain.Invoice, []invoicedomain.InvoiceItem, error) {
	var inv invoicedomain.Invoice
	err := s.db.WithContext(ctx).First(&inv, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invoicedomain.Invoice{}, nil, invoicedomain.ErrInvoiceNotFound
		}
		return invoicedomain.Invoice{}, nil, err
	}

	var items []invoicedomain.InvoiceItem
	if err := s.db.WithContext(ctx).
		Where("invoice_id = ?", id).
		Order("id").
		Find(&items).Error; err != nil {
		return invoicedomain.Invoice{}, nil, err
	}
	return inv, items, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) ([]invoicedomain.Invoice, error) {
	stmt := s.db.WithContext(ctx).Model(&invoicedomain.Invoice{})
	if req.PatientID != nil {
		stmt = stmt.Where("patient_id = ?", *req.PatientID)
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, invoicedomain.ErrInvalidStatus
		}
		stmt = stmt.Where("status = ?", *req.Status)
	}

	var invoices []invoicedomain.Invoice
	if err := stmt.Order("issue_date DESC, created_at DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Service) AdministrativeUpdate(ctx context.Context, id snowflake.ID, patch invoicedomain.AdminPatch) (invoicedomain.Invoice, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidStatus
	}

	var inv invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.loadInvoiceForUpdate(ctx, tx, id, &inv); err != nil {
			return err
		}

		inv.UpdatedAt = s.clock.Now()
		updates := map[string]any{"updated_at": inv.UpdatedAt}
		if patch.Status != nil {
			inv.Status = *patch.Status
			updates["status"] = inv.Status
		}
		if patch.PaymentMethod != nil {
			inv.PaymentMethod = patch.PaymentMethod
			updates["payment_method"] = *patch.PaymentMethod
		}
		if patch.Notes != nil {
			inv.Notes = patch.Notes
			updates["notes"] = *patch.Notes
		}

		return tx.Model(&invoicedomain.Invoice{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	targetID := id.String()
	_ = s.audit.AuditLog(ctx, nil, "invoice.admin_updated", "invoice", &targetID, map[string]any{
		"invoice_number": inv.InvoiceNumber,
		"status":         string(inv.Status),
	})
	return inv, nil
}

func (s *Service) ApplyPayment(ctx context.Context, req invoicedomain.ApplyPaymentRequest) (paymentdomain.Payment, error) {
	if !req.Amount.GreaterThan(decimal.Zero) {
		return paymentdomain.Payment{}, invoicedomain.ErrInvalidAmount
	}
	if req.Method == "" {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidMethod
	}

	policy := s.billing.Current()
	now := s.clock.Now()
	paymentDate := now
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}

	var (
		inv invoicedomain.Invoice
		pay paymentdomain.Payment
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.loadInvoiceForUpdate(ctx, tx, req.InvoiceID, &inv); err != nil {
			return err
		}

		if !policy.AllowOverpayment && req.Amount.GreaterThan(inv.Balance) {
			return invoicedomain.ErrOverpaymentDenied
		}

		number, err := s.sequence.NextInTx(ctx, tx, sequencedomain.KindPayment, 0)
		if err != nil {
			return err
		}

		pay = paymentdomain.Payment{
			ID:            s.genID.Generate(),
			PaymentNumber: number,
			InvoiceID:     inv.ID,
			PatientID:     inv.PatientID,
			PaymentDate:   paymentDate,
			Amount:        req.Amount.Round(2),
			Method:        req.Method,
			ProcessedBy:   req.ProcessedBy,
			CreatedAt:     now,
		}
		if ref := req.ReferenceNumber; ref != "" {
			pay.ReferenceNumber = &ref
		}
		if notes := req.Notes; notes != "" {
			pay.Notes = &notes
		}
		if err := tx.Create(&pay).Error; err != nil {
			return err
		}

		inv.AmountPaid = inv.AmountPaid.Add(pay.Amount).Round(2)
		inv.Balance = inv.TotalAmount.Sub(inv.AmountPaid).Round(2)
		inv.Status = invoicedomain.DeriveStatus(inv.TotalAmount, inv.AmountPaid)
		inv.PaymentMethod = &pay.Method
		inv.UpdatedAt = now

		return tx.Model(&invoicedomain.Invoice{}).Where("id = ?", inv.ID).Updates(map[string]any{
			"amount_paid":    inv.AmountPaid,
			"balance":        inv.Balance,
			"status":         inv.Status,
			"payment_method": pay.Method,
			"updated_at":     now,
		}).Error
	})
	if err != nil {
		return paymentdomain.Payment{}, err
	}

	targetID := pay.ID.String()
	_ = s.audit.AuditLog(ctx, nil, "payment.recorded", "payment", &targetID, map[string]any{
		"payment_number": pay.PaymentNumber,
		"invoice_number": inv.InvoiceNumber,
		"amount":         pay.Amount.String(),
		"balance":        inv.Balance.String(),
		"status":         string(inv.Status),
	})

	s.log.Info("payment recorded",
		zap.String("payment_number", pay.PaymentNumber),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("amount", pay.Amount.String()),
		zap.String("status", string(inv.Status)),
	)
	return pay, nil
}

// loadInvoiceForUpdate reads the invoice under a row lock so concurrent
// payments on the same invoice serialize instead of losing an update.
func (s *Service) loadInvoiceForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID, dest *invoicedomain.Invoice) error {
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(dest, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invoicedomain.ErrInvoiceNotFound
	}
	return err
}

func (s *Service) AgingSummary(ctx context.Context) ([]invoicedomain.AgingBucketSummary, error) {
	var open []invoicedomain.Invoice
	err := s.db.WithContext(ctx).
		Where("status <> ?", invoicedomain.InvoiceStatusPaid).
		Where("balance > ?", decimal.Zero).
		Find(&open).Error
	if err != nil {
		return nil, err
	}

	buckets := s.billing.Current().AgingBuckets
	summary := make([]invoicedomain.AgingBucketSummary, len(buckets))
	for i, b := range buckets {
		summary[i] = invoicedomain.AgingBucketSummary{Label: b.Label, Outstanding: decimal.Zero}
	}

	now := s.clock.Now()
	for _, inv := range open {
		anchor := inv.IssueDate
		if inv.DueDate != nil {
			anchor = *inv.DueDate
		}
		age := int(now.Sub(anchor) / (24 * time.Hour))
		if age < 0 {
			age = 0
		}
		for i, b := range buckets {
			if age < b.MinDays {
				continue
			}
			if b.MaxDays != nil && age > *b.MaxDays {
				continue
			}
			summary[i].Invoices++
			summary[i].Outstanding = summary[i].Outstanding.Add(inv.Balance)
			break
		}
	}
	return summary, nil
}
