package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createInvoiceItemRequest struct {
	ProcedureCodeID string           `json:"procedure_code_id"`
	Description     string           `json:"description"`
	Quantity        int64            `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
}

type createInvoiceRequest struct {
	PatientID      string                     `json:"patient_id"`
	EncounterID    string                     `json:"encounter_id"`
	Items          []createInvoiceItemRequest `json:"items"`
	TaxRatePercent *decimal.Decimal           `json:"tax_rate_percent"`
	Discount       *decimal.Decimal           `json:"discount_amount"`
	DueDate        string                     `json:"due_date"`
	Notes          string                     `json:"notes"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	patientID, err := parseOptionalID(req.PatientID)
	if err != nil || patientID == nil {
		AbortWithError(c, newValidationError("patient_id", "invalid_patient", "invalid patient id"))
		return
	}
	encounterID, err := parseOptionalID(req.EncounterID)
	if err != nil {
		AbortWithError(c, newValidationError("encounter_id", "invalid_encounter", "invalid encounter id"))
		return
	}
	dueDate, err := parseOptionalTime(req.DueDate, true)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due date"))
		return
	}

	items := make([]invoicedomain.CreateItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		codeID, err := parseOptionalID(item.ProcedureCodeID)
		if err != nil {
			AbortWithError(c, newValidationError("items", "invalid_procedure_code", "invalid procedure code id"))
			return
		}
		items = append(items, invoicedomain.CreateItemRequest{
			ProcedureCodeID: codeID,
			Description:     strings.TrimSpace(item.Description),
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
		})
	}

	discount := decimal.Zero
	if req.Discount != nil {
		discount = *req.Discount
	}

	inv, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		PatientID:      *patientID,
		EncounterID:    encounterID,
		Items:          items,
		TaxRatePercent: req.TaxRatePercent,
		Discount:       discount,
		DueDate:        dueDate,
		Notes:          strings.TrimSpace(req.Notes),
		CreatedBy:      actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": inv})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		PatientID string `form:"patient_id"`
		Status    string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	patientID, err := parseOptionalID(query.PatientID)
	if err != nil {
		AbortWithError(c, newValidationError("patient_id", "invalid_patient", "invalid patient id"))
		return
	}

	req := invoicedomain.ListInvoiceRequest{PatientID: patientID}
	if status := strings.TrimSpace(query.Status); status != "" {
		st := invoicedomain.InvoiceStatus(status)
		req.Status = &st
	}

	invoices, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoices})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	inv, items, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"invoice": inv,
		"items":   items,
	}})
}

type updateInvoiceRequest struct {
	Status        *string `json:"status"`
	PaymentMethod *string `json:"payment_method"`
	Notes         *string `json:"notes"`
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	patch := invoicedomain.AdminPatch{
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}
	if req.Status != nil {
		status := invoicedomain.InvoiceStatus(*req.Status)
		patch.Status = &status
	}

	inv, err := s.invoiceSvc.AdministrativeUpdate(c.Request.Context(), id, patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": inv})
}

func (s *Server) InvoicePDF(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	inv, items, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reader, err := s.pdfSvc.InvoicePDF(c.Request.Context(), inv, items)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	doc, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", inv.InvoiceNumber))
	c.Data(http.StatusOK, "application/pdf", doc)
}

func (s *Server) ARAgingSummary(c *gin.Context) {
	summary, err := s.invoiceSvc.AgingSummary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}
