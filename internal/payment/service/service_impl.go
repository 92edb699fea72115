package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Invoice invoicedomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	invoice invoicedomain.Service
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("payment.service"),
		invoice: p.Invoice,
	}
}

// Record delegates to the invoice ledger, which writes the payment and the
// invoice aggregate in one transaction.
func (s *Service) Record(ctx context.Context, req paymentdomain.RecordPaymentRequest) (paymentdomain.Payment, error) {
	return s.invoice.ApplyPayment(ctx, invoicedomain.ApplyPaymentRequest{
		InvoiceID:       req.InvoiceID,
		Amount:          req.Amount,
		Method:          req.Method,
		PaymentDate:     req.PaymentDate,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		ProcessedBy:     req.ProcessedBy,
	})
}

func (s *Service) List(ctx context.Context, req paymentdomain.ListPaymentRequest) ([]paymentdomain.Payment, error) {
	stmt := s.db.WithContext(ctx).Model(&paymentdomain.Payment{})
	if req.InvoiceID != nil {
		stmt = stmt.Where("invoice_id = ?", *req.InvoiceID)
	}
	if req.PatientID != nil {
		stmt = stmt.Where("patient_id = ?", *req.PatientID)
	}

	var payments []paymentdomain.Payment
	if err := stmt.Order("payment_date DESC, created_at DESC, id DESC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (paymentdomain.Payment, error) {
	var pay paymentdomain.Payment
	err := s.db.WithContext(ctx).First(&pay, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return paymentdomain.Payment{}, paymentdomain.ErrPaymentNotFound
		}
		return paymentdomain.Payment{}, err
	}
	return pay, nil
}
