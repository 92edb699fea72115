package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type SubmitClaimRequest struct {
	PatientID          snowflake.ID
	EncounterID        *snowflake.ID
	InvoiceID          *snowflake.ID
	InsuranceCompany   string
	PolicyNumber       string
	GroupNumber        string
	SubscriberName     string
	SubscriberRelation string
	ServiceDate        time.Time
	DiagnosisCodes     []string
	ProcedureCodes     []string
	TotalCharged       decimal.Decimal
	Notes              string
	CreatedBy          string
}

// AdjudicateRequest is the payer response merge-patch. Status is required;
// every other field is applied only when supplied, so a partial response
// never clears what an earlier one recorded.
type AdjudicateRequest struct {
	Status                ClaimStatus
	AmountApproved        *decimal.Decimal
	AmountPaid            *decimal.Decimal
	PatientResponsibility *decimal.Decimal
	ResponseDate          *time.Time
	DenialReason          *string
	Notes                 *string
}

type ListClaimRequest struct {
	PatientID *snowflake.ID
	InvoiceID *snowflake.ID
	Status    *ClaimStatus
}

type Service interface {
	Submit(ctx context.Context, req SubmitClaimRequest) (InsuranceClaim, error)
	Adjudicate(ctx context.Context, id snowflake.ID, req AdjudicateRequest) (InsuranceClaim, error)
	GetByID(ctx context.Context, id snowflake.ID) (InsuranceClaim, error)
	List(ctx context.Context, req ListClaimRequest) ([]InsuranceClaim, error)
}

var (
	ErrClaimNotFound      = errors.New("claim_not_found")
	ErrInvalidPatient     = errors.New("invalid_patient")
	ErrMissingPayer       = errors.New("missing_insurance_company")
	ErrMissingPolicy      = errors.New("missing_policy_number")
	ErrMissingServiceDate = errors.New("missing_service_date")
	ErrInvalidCharge      = errors.New("invalid_total_charged")
	ErrInvalidClaimStatus = errors.New("invalid_claim_status")
	ErrInvalidTransition  = errors.New("invalid_claim_transition")
	ErrMissingDenial      = errors.New("missing_denial_reason")
)
