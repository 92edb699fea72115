package server

import (
	"net/http"
	"strings"

	claimdomain "github.com/clinicore/ledger/internal/claim/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type submitClaimRequest struct {
	PatientID          string          `json:"patient_id"`
	EncounterID        string          `json:"encounter_id"`
	InvoiceID          string          `json:"invoice_id"`
	InsuranceCompany   string          `json:"insurance_company"`
	PolicyNumber       string          `json:"policy_number"`
	GroupNumber        string          `json:"group_number"`
	SubscriberName     string          `json:"subscriber_name"`
	SubscriberRelation string          `json:"subscriber_relation"`
	ServiceDate        string          `json:"service_date"`
	DiagnosisCodes     []string        `json:"diagnosis_codes"`
	ProcedureCodes     []string        `json:"procedure_codes"`
	TotalCharged       decimal.Decimal `json:"total_charged"`
	Notes              string          `json:"notes"`
}

func (s *Server) SubmitClaim(c *gin.Context) {
	var req submitClaimRequest
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
	invoiceID, err := parseOptionalID(req.InvoiceID)
	if err != nil {
		AbortWithError(c, newValidationError("invoice_id", "invalid_invoice", "invalid invoice id"))
		return
	}
	serviceDate, err := parseOptionalTime(req.ServiceDate, false)
	if err != nil || serviceDate == nil {
		AbortWithError(c, newValidationError("service_date", "missing_service_date", "invalid service date"))
		return
	}

	clm, err := s.claimSvc.Submit(c.Request.Context(), claimdomain.SubmitClaimRequest{
		PatientID:          *patientID,
		EncounterID:        encounterID,
		InvoiceID:          invoiceID,
		InsuranceCompany:   strings.TrimSpace(req.InsuranceCompany),
		PolicyNumber:       strings.TrimSpace(req.PolicyNumber),
		GroupNumber:        strings.TrimSpace(req.GroupNumber),
		SubscriberName:     strings.TrimSpace(req.SubscriberName),
		SubscriberRelation: strings.TrimSpace(req.SubscriberRelation),
		ServiceDate:        *serviceDate,
		DiagnosisCodes:     req.DiagnosisCodes,
		ProcedureCodes:     req.ProcedureCodes,
		TotalCharged:       req.TotalCharged,
		Notes:              strings.TrimSpace(req.Notes),
		CreatedBy:          actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": clm})
}

type adjudicateClaimRequest struct {
	Status                string           `json:"status"`
	AmountApproved        *decimal.Decimal `json:"amount_approved"`
	AmountPaid            *decimal.Decimal `json:"amount_paid"`
	PatientResponsibility *decimal.Decimal `json:"patient_responsibility"`
	ResponseDate          string           `json:"response_date"`
	DenialReason          *string          `json:"denial_reason"`
	Notes                 *string          `json:"notes"`
}

func (s *Server) AdjudicateClaim(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req adjudicateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	responseDate, err := parseOptionalTime(req.ResponseDate, false)
	if err != nil {
		AbortWithError(c, newValidationError("response_date", "invalid_response_date", "invalid response date"))
		return
	}

	clm, err := s.claimSvc.Adjudicate(c.Request.Context(), id, claimdomain.AdjudicateRequest{
		Status:                claimdomain.ClaimStatus(strings.TrimSpace(req.Status)),
		AmountApproved:        req.AmountApproved,
		AmountPaid:            req.AmountPaid,
		PatientResponsibility: req.PatientResponsibility,
		ResponseDate:          responseDate,
		DenialReason:          req.DenialReason,
		Notes:                 req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": clm})
}

func (s *Server) GetClaimByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	clm, err := s.claimSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": clm})
}

func (s *Server) ListClaims(c *gin.Context) {
	var query struct {
		PatientID string `form:"patient_id"`
		InvoiceID string `form:"invoice_id"`
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
	invoiceID, err := parseOptionalID(query.InvoiceID)
	if err != nil {
		AbortWithError(c, newValidationError("invoice_id", "invalid_invoice", "invalid invoice id"))
		return
	}

	req := claimdomain.ListClaimRequest{PatientID: patientID, InvoiceID: invoiceID}
	if status := strings.TrimSpace(query.Status); status != "" {
		st := claimdomain.ClaimStatus(status)
		req.Status = &st
	}

	claims, err := s.claimSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": claims})
}
