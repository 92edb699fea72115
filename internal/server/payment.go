package server

import (
	"net/http"
	"strings"

	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type recordPaymentRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"method"`
	PaymentDate     string          `json:"payment_date"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
}

func (s *Server) RecordPayment(c *gin.Context) {
	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	paymentDate, err := parseOptionalTime(req.PaymentDate, false)
	if err != nil {
		AbortWithError(c, newValidationError("payment_date", "invalid_payment_date", "invalid payment date"))
		return
	}

	pay, err := s.paymentSvc.Record(c.Request.Context(), paymentdomain.RecordPaymentRequest{
		InvoiceID:       invoiceID,
		Amount:          req.Amount,
		Method:          strings.TrimSpace(req.Method),
		PaymentDate:     paymentDate,
		ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
		Notes:           strings.TrimSpace(req.Notes),
		ProcessedBy:     actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": pay})
}

func (s *Server) ListPayments(c *gin.Context) {
	var query struct {
		InvoiceID string `form:"invoice_id"`
		PatientID string `form:"patient_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoiceID, err := parseOptionalID(query.InvoiceID)
	if err != nil {
		AbortWithError(c, newValidationError("invoice_id", "invalid_invoice", "invalid invoice id"))
		return
	}
	patientID, err := parseOptionalID(query.PatientID)
	if err != nil {
		AbortWithError(c, newValidationError("patient_id", "invalid_patient", "invalid patient id"))
		return
	}

	payments, err := s.paymentSvc.List(c.Request.Context(), paymentdomain.ListPaymentRequest{
		InvoiceID: invoiceID,
		PatientID: patientID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payments})
}

func (s *Server) GetPaymentByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	pay, err := s.paymentSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": pay})
}
