package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/clinicore/ledger/internal/audit/domain"
	claimdomain "github.com/clinicore/ledger/internal/claim/domain"
	"github.com/clinicore/ledger/internal/clock"
	sequencedomain "github.com/clinicore/ledger/internal/sequence/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Sequence sequencedomain.Allocator
	Audit    auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	sequence sequencedomain.Allocator
	audit    auditdomain.Service
}

func NewService(p Params) claimdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("claim.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		sequence: p.Sequence,
		audit:    p.Audit,
	}
}

func (s *Service) Submit(ctx context.Context, req claimdomain.SubmitClaimRequest) (claimdomain.InsuranceClaim, error) {
	if req.PatientID == 0 {
		return claimdomain.InsuranceClaim{}, claimdomain.ErrInvalidPatient
	}
	if strings.TrimSpace(req.InsuranceCompany) == "" {
		return claimdomain.InsuranceClaim{}, claimdomain.ErrMissingPayer
	}
	if strings.TrimSpace(req.PolicyNumber) == "" {
		return claimdomain.InsuranceClaim{}, claimdomain.ErrMissingPolicy
	}
	if req.ServiceDate.IsZero() {
		return claimdomain.InsuranceClaim{}, claimdomain.ErrMissingServiceDate
	}
	if !req.TotalCharged.GreaterThan(decimal.Zero) {
		return claimdomain.InsuranceClaim{}, claimdomain.ErrInvalidCharge
	}

	now := s.clock.Now()
	clm := claimdomain.InsuranceClaim{
		ID:               s.genID.Generate(),
		PatientID:        req.PatientID,
		EncounterID:      req.EncounterID,
		InvoiceID:        req.InvoiceID,
		InsuranceCompany: req.InsuranceCompany,
		PolicyNumber:     req.PolicyNumber,
		ServiceDate:      req.ServiceDate,
		DiagnosisCodes:   datatypes.NewJSONSlice(req.DiagnosisCodes),
		ProcedureCodes:   datatypes.NewJSONSlice(req.ProcedureCodes),
		TotalCharged:     req.TotalCharged.Round(2),
		Status:           claimdomain.ClaimStatusSubmitted,
		SubmittedAt:      now,
		CreatedBy:        req.CreatedBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if v := req.GroupNumber; v != "" {
		clm.GroupNumber = &v
	}
	if v := req.SubscriberName; v != "" {
		clm.SubscriberName = &v
	}
	if v := req.SubscriberRelation; v != "" {
		clm.SubscriberRelation = &v
	}
	if v := req.Notes; v != "" {
		clm.Notes = &v
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.sequence.NextInTx(ctx, tx, sequencedomain.KindClaim, 0)
		if err != nil {
			return err
		}
		clm.ClaimNumber = number
		return tx.Create(&clm).Error
	})
	if err != nil {
		return claimdomain.InsuranceClaim{}, err
	}

	targetID := clm.ID.String()
	_ = s.audit.AuditLog(ctx, nil, "claim.submitted", "claim", &targetID, map[string]any{
		"claim_number":  clm.ClaimNumber,
		"patient_id":    clm.PatientID.String(),
		"payer":         clm.InsuranceCompany,
		"total_charged": clm.TotalCharged.String(),
	})

	s.log.Info("claim submitted",
		zap.String("claim_number", clm.ClaimNumber),
		zap.String("payer", clm.InsuranceCompany),
	)
	return clm, nil
}

func (s *Service) Adjudicate(ctx context.Context, id snowflake.ID, req claimdomain.AdjudicateRequest) (claimdomain.InsuranceClaim, error) {
	if !req.Status.Valid() {
		return claimdomain.InsuranceClaim{}, claimdomain.ErrInvalidClaimStatus
	}

	var clm claimdomain.InsuranceClaim
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&clm, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return claimdomain.ErrClaimNotFound
		}
		if err != nil {
			return err
		}

		if !claimdomain.CanTransition(clm.Status, req.Status, req.AmountPaid != nil) {
			return claimdomain.ErrInvalidTransition
		}
		if req.Status == claimdomain.ClaimStatusDenied && req.DenialReason == nil && clm.DenialReason == nil {
			return claimdomain.ErrMissingDenial
		}

		now := s.clock.Now()
		clm.Status = req.Status
		clm.UpdatedAt = now
		if req.AmountApproved != nil {
			v := req.AmountApproved.Round(2)
			clm.AmountApproved = &v
		}
		if req.AmountPaid != nil {
			v := req.AmountPaid.Round(2)
			clm.AmountPaid = &v
		}
		if req.PatientResponsibility != nil {
			v := req.PatientResponsibility.Round(2)
			clm.PatientResponsibility = &v
		}
		if req.ResponseDate != nil {
			clm.RespondedAt = req.ResponseDate
		} else if clm.RespondedAt == nil {
			clm.RespondedAt = &now
		}
		if req.DenialReason != nil {
			clm.DenialReason = req.DenialReason
		}
		if req.Notes != nil {
			clm.Notes = req.Notes
		}

		return tx.Save(&clm).Error
	})
	if err != nil {
		return claimdomain.InsuranceClaim{}, err
	}

	targetID := clm.ID.String()
	meta := map[string]any{
		"claim_number": clm.ClaimNumber,
		"status":       string(clm.Status),
	}
	if clm.DenialReason != nil {
		meta["denial_reason"] = *clm.DenialReason
	}
	_ = s.audit.AuditLog(ctx, nil, "claim.adjudicated", "claim", &targetID, meta)

	s.log.Info("claim adjudicated",
		zap.String("claim_number", clm.ClaimNumber),
		zap.String("status", string(clm.Status)),
	)
	return clm, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (claimdomain.InsuranceClaim, error) {
	var clm claimdomain.InsuranceClaim
	err := s.db.WithContext(ctx).First(&clm, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return claimdomain.InsuranceClaim{}, claimdomain.ErrClaimNotFound
		}
		return claimdomain.InsuranceClaim{}, err
	}
	return clm, nil
}

func (s *Service) List(ctx context.Context, req claimdomain.ListClaimRequest) ([]claimdomain.InsuranceClaim, error) {
	stmt := s.db.WithContext(ctx).Model(&claimdomain.InsuranceClaim{})
	if req.PatientID != nil {
		stmt = stmt.Where("patient_id = ?", *req.PatientID)
	}
	if req.InvoiceID != nil {
		stmt = stmt.Where("invoice_id = ?", *req.InvoiceID)
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, claimdomain.ErrInvalidClaimStatus
		}
		stmt = stmt.Where("status = ?", *req.Status)
	}

	var claims []claimdomain.InsuranceClaim
	if err := stmt.Order("submitted_at DESC, created_at DESC").Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}
