package service_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/clinicore/ledger/internal/audit/domain"
	auditrepository "github.com/clinicore/ledger/internal/audit/repository"
	auditservice "github.com/clinicore/ledger/internal/audit/service"
	"github.com/clinicore/ledger/internal/clock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	clock *clock.FakeClock
	svc   auditdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	svc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  auditrepository.Provide(),
	})

	return &fixture{db: db, clock: fake, svc: svc}
}

func (f *fixture) write(t *testing.T, action, targetType, targetID string) {
	t.Helper()
	actor := "billing"
	err := f.svc.AuditLog(context.Background(), &actor, action, targetType, &targetID, map[string]any{
		"note": "test entry",
	})
	require.NoError(t, err)
}

func TestAuditLogRejectsEmptyAction(t *testing.T) {
	f := newFixture(t)

	err := f.svc.AuditLog(context.Background(), nil, "  ", "invoice", nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListFiltersByActionAndTarget(t *testing.T) {
	f := newFixture(t)
	f.write(t, "invoice.created", "invoice", "101")
	f.clock.Advance(time.Minute)
	f.write(t, "payment.recorded", "invoice", "101")
	f.clock.Advance(time.Minute)
	f.write(t, "claim.submitted", "claim", "202")

	resp, err := f.svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Action: "payment.recorded",
	})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, "payment.recorded", resp.AuditLogs[0].Action)
	assert.False(t, resp.HasMore)

	resp, err = f.svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		TargetType: "invoice",
	})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 2)
	// Newest first.
	assert.Equal(t, "payment.recorded", resp.AuditLogs[0].Action)
	assert.Equal(t, "invoice.created", resp.AuditLogs[1].Action)
}

func TestListRejectsInvertedTimeRange(t *testing.T) {
	f := newFixture(t)

	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err := f.svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		StartAt: &start,
		EndAt:   &end,
	})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}

func TestListPaginatesWithCursor(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.write(t, fmt.Sprintf("invoice.created.%d", i), "invoice", fmt.Sprintf("%d", i))
		f.clock.Advance(time.Second)
	}

	req := auditdomain.ListAuditLogRequest{}
	req.PageSize = 2

	page1, err := f.svc.List(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, page1.AuditLogs, 2)
	require.True(t, page1.HasMore)
	require.NotEmpty(t, page1.NextPageToken)
	assert.Equal(t, "invoice.created.4", page1.AuditLogs[0].Action)
	assert.Equal(t, "invoice.created.3", page1.AuditLogs[1].Action)

	req.PageToken = page1.NextPageToken
	page2, err := f.svc.List(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, page2.AuditLogs, 2)
	require.True(t, page2.HasMore)
	assert.Equal(t, "invoice.created.2", page2.AuditLogs[0].Action)
	assert.Equal(t, "invoice.created.1", page2.AuditLogs[1].Action)

	req.PageToken = page2.NextPageToken
	page3, err := f.svc.List(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, page3.AuditLogs, 1)
	assert.False(t, page3.HasMore)
	assert.Equal(t, "invoice.created.0", page3.AuditLogs[0].Action)
}

func TestListRejectsGarbagePageToken(t *testing.T) {
	f := newFixture(t)

	req := auditdomain.ListAuditLogRequest{}
	req.PageToken = "not-base64!!"
	_, err := f.svc.List(context.Background(), req)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
