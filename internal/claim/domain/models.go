// Package domain contains the insurance claim aggregate. A claim tracks the
// payer conversation for services rendered, independent of the invoice it may
// reference; adjudication merges the payer response into the record without
// ever deleting it.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ClaimStatus represents where a claim sits in the payer conversation.
type ClaimStatus string

const (
	ClaimStatusSubmitted ClaimStatus = "submitted"
	ClaimStatusApproved  ClaimStatus = "approved"
	ClaimStatusDenied    ClaimStatus = "denied"
	ClaimStatusPaid      ClaimStatus = "paid"
)

func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimStatusSubmitted, ClaimStatusApproved, ClaimStatusDenied, ClaimStatusPaid:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a claim may move from one status to another.
// Paid is normally reached through approved; a direct submitted to paid jump
// is allowed only when the payer response already carries a payment figure.
func CanTransition(from, to ClaimStatus, hasPayment bool) bool {
	if from == to {
		return true
	}
	switch from {
	case ClaimStatusSubmitted:
		switch to {
		case ClaimStatusApproved, ClaimStatusDenied:
			return true
		case ClaimStatusPaid:
			return hasPayment
		}
	case ClaimStatusApproved:
		return to == ClaimStatusPaid
	}
	return false
}

// InsuranceClaim is one claim submission and its adjudication state. The
// monetary response fields stay null until the payer has answered.
type InsuranceClaim struct {
	ID                    snowflake.ID                `json:"id" gorm:"primaryKey"`
	ClaimNumber           string                      `json:"claim_number" gorm:"type:text;not null;uniqueIndex"`
	PatientID             snowflake.ID                `json:"patient_id" gorm:"not null;index"`
	EncounterID           *snowflake.ID               `json:"encounter_id" gorm:"index"`
	InvoiceID             *snowflake.ID               `json:"invoice_id" gorm:"index"`
	InsuranceCompany      string                      `json:"insurance_company" gorm:"type:text;not null"`
	PolicyNumber          string                      `json:"policy_number" gorm:"type:text;not null"`
	GroupNumber           *string                     `json:"group_number" gorm:"type:text"`
	SubscriberName        *string                     `json:"subscriber_name" gorm:"type:text"`
	SubscriberRelation    *string                     `json:"subscriber_relation" gorm:"type:text"`
	ServiceDate           time.Time                   `json:"service_date" gorm:"not null"`
	DiagnosisCodes        datatypes.JSONSlice[string] `json:"diagnosis_codes"`
	ProcedureCodes        datatypes.JSONSlice[string] `json:"procedure_codes"`
	TotalCharged          decimal.Decimal             `json:"total_charged" gorm:"type:decimal(12,2);not null"`
	AmountApproved        *decimal.Decimal            `json:"amount_approved" gorm:"type:decimal(12,2)"`
	AmountPaid            *decimal.Decimal            `json:"amount_paid" gorm:"type:decimal(12,2)"`
	PatientResponsibility *decimal.Decimal            `json:"patient_responsibility" gorm:"type:decimal(12,2)"`
	Status                ClaimStatus                 `json:"status" gorm:"type:text;not null;default:'submitted';index"`
	SubmittedAt           time.Time                   `json:"submitted_at" gorm:"not null;index"`
	RespondedAt           *time.Time                  `json:"responded_at"`
	DenialReason          *string                     `json:"denial_reason" gorm:"type:text"`
	Notes                 *string                     `json:"notes" gorm:"type:text"`
	CreatedBy             string                      `json:"created_by" gorm:"type:text;not null"`
	CreatedAt             time.Time                   `json:"created_at" gorm:"not null"`
	UpdatedAt             time.Time                   `json:"updated_at" gorm:"not null"`
}

func (InsuranceClaim) TableName() string { return "insurance_claims" }
