package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/clinicore/ledger/internal/audit/domain"
	auditrepository "github.com/clinicore/ledger/internal/audit/repository"
	auditservice "github.com/clinicore/ledger/internal/audit/service"
	claimdomain "github.com/clinicore/ledger/internal/claim/domain"
	claimservice "github.com/clinicore/ledger/internal/claim/service"
	"github.com/clinicore/ledger/internal/clock"
	sequencedomain "github.com/clinicore/ledger/internal/sequence/domain"
	sequenceservice "github.com/clinicore/ledger/internal/sequence/service"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	clock  *clock.FakeClock
	node   *snowflake.Node
	claims claimdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&sequencedomain.DocumentSequence{},
		&claimdomain.InsuranceClaim{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	claims := claimservice.NewService(claimservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Sequence: sequenceservice.NewService(sequenceservice.Params{
			DB: db, Log: log, Clock: fake,
		}),
		Audit: auditservice.NewService(auditservice.Params{
			DB: db, Log: log, GenID: node, Clock: fake, Repo: auditrepository.Provide(),
		}),
	})

	return &fixture{db: db, clock: fake, node: node, claims: claims}
}

func money(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func (f *fixture) submitClaim(t *testing.T, charged string) claimdomain.InsuranceClaim {
	t.Helper()
	clm, err := f.claims.Submit(context.Background(), claimdomain.SubmitClaimRequest{
		PatientID:        f.node.Generate(),
		InsuranceCompany: "Acme Health",
		PolicyNumber:     "POL-8841",
		ServiceDate:      f.clock.Now().Add(-48 * time.Hour),
		DiagnosisCodes:   []string{"E11.9"},
		ProcedureCodes:   []string{"99213"},
		TotalCharged:     money(t, charged),
		CreatedBy:        "billing",
	})
	require.NoError(t, err)
	return clm
}

func TestSubmitAssignsNumberAndStatus(t *testing.T) {
	f := newFixture(t)
	clm := f.submitClaim(t, "200.00")

	assert.Equal(t, "CLM-2025-00001", clm.ClaimNumber)
	assert.Equal(t, claimdomain.ClaimStatusSubmitted, clm.Status)
	assert.Equal(t, f.clock.Now(), clm.SubmittedAt)
	assert.Nil(t, clm.AmountApproved)
	assert.Nil(t, clm.AmountPaid)
	assert.Nil(t, clm.RespondedAt)
	assert.Equal(t, []string{"E11.9"}, []string(clm.DiagnosisCodes))
	assert.Equal(t, []string{"99213"}, []string(clm.ProcedureCodes))
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base := claimdomain.SubmitClaimRequest{
		PatientID:        f.node.Generate(),
		InsuranceCompany: "Acme Health",
		PolicyNumber:     "POL-8841",
		ServiceDate:      f.clock.Now(),
		TotalCharged:     money(t, "100.00"),
		CreatedBy:        "billing",
	}

	req := base
	req.PatientID = 0
	_, err := f.claims.Submit(ctx, req)
	assert.ErrorIs(t, err, claimdomain.ErrInvalidPatient)

	req = base
	req.InsuranceCompany = "  "
	_, err = f.claims.Submit(ctx, req)
	assert.ErrorIs(t, err, claimdomain.ErrMissingPayer)

	req = base
	req.PolicyNumber = ""
	_, err = f.claims.Submit(ctx, req)
	assert.ErrorIs(t, err, claimdomain.ErrMissingPolicy)

	req = base
	req.ServiceDate = time.Time{}
	_, err = f.claims.Submit(ctx, req)
	assert.ErrorIs(t, err, claimdomain.ErrMissingServiceDate)

	req = base
	req.TotalCharged = decimal.Zero
	_, err = f.claims.Submit(ctx, req)
	assert.ErrorIs(t, err, claimdomain.ErrInvalidCharge)
}

func TestDenialKeepsApprovedAmountNull(t *testing.T) {
	f := newFixture(t)
	clm := f.submitClaim(t, "200.00")

	reason := "non-covered service"
	denied, err := f.claims.Adjudicate(context.Background(), clm.ID, claimdomain.AdjudicateRequest{
		Status:       claimdomain.ClaimStatusDenied,
		DenialReason: &reason,
	})
	require.NoError(t, err)

	assert.Equal(t, claimdomain.ClaimStatusDenied, denied.Status)
	assert.Nil(t, denied.AmountApproved)
	assert.Nil(t, denied.AmountPaid)
	require.NotNil(t, denied.DenialReason)
	assert.Equal(t, "non-covered service", *denied.DenialReason)
	require.NotNil(t, denied.RespondedAt)
}

func TestApprovalThenPayment(t *testing.T) {
	f := newFixture(t)
	clm := f.submitClaim(t, "200.00")
	ctx := context.Background()

	approvedAmount := money(t, "160.00")
	responsibility := money(t, "40.00")
	approved, err := f.claims.Adjudicate(ctx, clm.ID, claimdomain.AdjudicateRequest{
		Status:                claimdomain.ClaimStatusApproved,
		AmountApproved:        &approvedAmount,
		PatientResponsibility: &responsibility,
	})
	require.NoError(t, err)
	assert.Equal(t, claimdomain.ClaimStatusApproved, approved.Status)
	require.NotNil(t, approved.AmountApproved)
	assert.True(t, approvedAmount.Equal(*approved.AmountApproved))

	paidAmount := money(t, "160.00")
	paid, err := f.claims.Adjudicate(ctx, clm.ID, claimdomain.AdjudicateRequest{
		Status:     claimdomain.ClaimStatusPaid,
		AmountPaid: &paidAmount,
	})
	require.NoError(t, err)
	assert.Equal(t, claimdomain.ClaimStatusPaid, paid.Status)
	require.NotNil(t, paid.AmountPaid)
	assert.True(t, paidAmount.Equal(*paid.AmountPaid))

	// Merge-patch: the approval figures survive the second response.
	require.NotNil(t, paid.AmountApproved)
	assert.True(t, approvedAmount.Equal(*paid.AmountApproved))
	require.NotNil(t, paid.PatientResponsibility)
	assert.True(t, responsibility.Equal(*paid.PatientResponsibility))
}

func TestDirectPaymentRequiresAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bare := f.submitClaim(t, "120.00")
	_, err := f.claims.Adjudicate(ctx, bare.ID, claimdomain.AdjudicateRequest{
		Status: claimdomain.ClaimStatusPaid,
	})
	assert.ErrorIs(t, err, claimdomain.ErrInvalidTransition)

	funded := f.submitClaim(t, "120.00")
	amount := money(t, "120.00")
	paid, err := f.claims.Adjudicate(ctx, funded.ID, claimdomain.AdjudicateRequest{
		Status:     claimdomain.ClaimStatusPaid,
		AmountPaid: &amount,
	})
	require.NoError(t, err)
	assert.Equal(t, claimdomain.ClaimStatusPaid, paid.Status)
}

func TestAdjudicateRejectsInvalidTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	clm := f.submitClaim(t, "90.00")
	reason := "duplicate claim"
	_, err := f.claims.Adjudicate(ctx, clm.ID, claimdomain.AdjudicateRequest{
		Status:       claimdomain.ClaimStatusDenied,
		DenialReason: &reason,
	})
	require.NoError(t, err)

	// Denied is terminal.
	_, err = f.claims.Adjudicate(ctx, clm.ID, claimdomain.AdjudicateRequest{
		Status: claimdomain.ClaimStatusApproved,
	})
	assert.ErrorIs(t, err, claimdomain.ErrInvalidTransition)

	_, err = f.claims.Adjudicate(ctx, clm.ID, claimdomain.AdjudicateRequest{
		Status: claimdomain.ClaimStatus("appealed"),
	})
	assert.ErrorIs(t, err, claimdomain.ErrInvalidClaimStatus)

	_, err = f.claims.Adjudicate(ctx, f.node.Generate(), claimdomain.AdjudicateRequest{
		Status: claimdomain.ClaimStatusApproved,
	})
	assert.ErrorIs(t, err, claimdomain.ErrClaimNotFound)

	fresh := f.submitClaim(t, "45.00")
	_, err = f.claims.Adjudicate(ctx, fresh.ID, claimdomain.AdjudicateRequest{
		Status: claimdomain.ClaimStatusDenied,
	})
	assert.ErrorIs(t, err, claimdomain.ErrMissingDenial)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.submitClaim(t, "100.00")
	f.submitClaim(t, "300.00")

	_, err := f.claims.Adjudicate(ctx, first.ID, claimdomain.AdjudicateRequest{
		Status: claimdomain.ClaimStatusApproved,
	})
	require.NoError(t, err)

	byPatient, err := f.claims.List(ctx, claimdomain.ListClaimRequest{PatientID: &first.PatientID})
	require.NoError(t, err)
	require.Len(t, byPatient, 1)
	assert.Equal(t, first.ID, byPatient[0].ID)

	approved := claimdomain.ClaimStatusApproved
	byStatus, err := f.claims.List(ctx, claimdomain.ListClaimRequest{Status: &approved})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)

	all, err := f.claims.List(ctx, claimdomain.ListClaimRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
