package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/ledger/internal/clock"
	orderdomain "github.com/clinicore/ledger/internal/order/domain"
	orderservice "github.com/clinicore/ledger/internal/order/service"
	sequencedomain "github.com/clinicore/ledger/internal/sequence/domain"
	sequenceservice "github.com/clinicore/ledger/internal/sequence/service"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	clock  *clock.FakeClock
	node   *snowflake.Node
	orders orderdomain.Service
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
		&orderdomain.LabOrder{},
		&orderdomain.ImagingOrder{},
	))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 7, 2, 11, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	orders := orderservice.NewService(orderservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Sequence: sequenceservice.NewService(sequenceservice.Params{
			DB: db, Log: log, Clock: fake,
		}),
	})

	return &fixture{clock: fake, node: node, orders: orders}
}

func TestCreateLabOrder(t *testing.T) {
	f := newFixture(t)

	order, err := f.orders.CreateLabOrder(context.Background(), orderdomain.CreateLabOrderRequest{
		PatientID: f.node.Generate(),
		TestName:  "CBC with differential",
		OrderedBy: "dr.adams",
	})
	require.NoError(t, err)

	assert.Equal(t, "LAB-2025-00001", order.OrderNumber)
	assert.Equal(t, orderdomain.OrderStatusOrdered, order.Status)
	assert.Equal(t, "routine", order.Priority)
	assert.Nil(t, order.CompletedAt)
}

func TestCreateLabOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orders.CreateLabOrder(ctx, orderdomain.CreateLabOrderRequest{
		TestName: "CBC", OrderedBy: "dr.adams",
	})
	assert.ErrorIs(t, err, orderdomain.ErrInvalidPatient)

	_, err = f.orders.CreateLabOrder(ctx, orderdomain.CreateLabOrderRequest{
		PatientID: f.node.Generate(), OrderedBy: "dr.adams",
	})
	assert.ErrorIs(t, err, orderdomain.ErrMissingTestName)
}

func TestCreateImagingOrder(t *testing.T) {
	f := newFixture(t)

	order, err := f.orders.CreateImagingOrder(context.Background(), orderdomain.CreateImagingOrderRequest{
		PatientID: f.node.Generate(),
		Modality:  "xray",
		BodyPart:  "chest",
		Priority:  "stat",
		OrderedBy: "dr.adams",
	})
	require.NoError(t, err)

	assert.Equal(t, "IMG-2025-00001", order.OrderNumber)
	assert.Equal(t, "stat", order.Priority)
	assert.Equal(t, orderdomain.OrderStatusOrdered, order.Status)

	_, err = f.orders.CreateImagingOrder(context.Background(), orderdomain.CreateImagingOrderRequest{
		PatientID: f.node.Generate(), Modality: "ct", OrderedBy: "dr.adams",
	})
	assert.ErrorIs(t, err, orderdomain.ErrMissingBodyPart)
}

func TestLabOrderStatusLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orders.CreateLabOrder(ctx, orderdomain.CreateLabOrderRequest{
		PatientID: f.node.Generate(), TestName: "Lipid panel", OrderedBy: "dr.adams",
	})
	require.NoError(t, err)

	inProgress, err := f.orders.UpdateLabOrderStatus(ctx, order.ID, orderdomain.OrderStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.OrderStatusInProgress, inProgress.Status)

	f.clock.Advance(2 * time.Hour)
	completed, err := f.orders.UpdateLabOrderStatus(ctx, order.ID, orderdomain.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.OrderStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	assert.Equal(t, f.clock.Now(), *completed.CompletedAt)

	// Completed is terminal.
	_, err = f.orders.UpdateLabOrderStatus(ctx, order.ID, orderdomain.OrderStatusCancelled)
	assert.ErrorIs(t, err, orderdomain.ErrInvalidTransition)

	_, err = f.orders.UpdateLabOrderStatus(ctx, order.ID, orderdomain.OrderStatus("archived"))
	assert.ErrorIs(t, err, orderdomain.ErrInvalidStatus)

	_, err = f.orders.UpdateLabOrderStatus(ctx, f.node.Generate(), orderdomain.OrderStatusCancelled)
	assert.ErrorIs(t, err, orderdomain.ErrOrderNotFound)
}

func TestListOrdersFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.orders.CreateLabOrder(ctx, orderdomain.CreateLabOrderRequest{
		PatientID: f.node.Generate(), TestName: "CBC", OrderedBy: "dr.adams",
	})
	require.NoError(t, err)
	_, err = f.orders.CreateLabOrder(ctx, orderdomain.CreateLabOrderRequest{
		PatientID: f.node.Generate(), TestName: "HbA1c", OrderedBy: "dr.adams",
	})
	require.NoError(t, err)

	_, err = f.orders.UpdateLabOrderStatus(ctx, first.ID, orderdomain.OrderStatusCancelled)
	require.NoError(t, err)

	byPatient, err := f.orders.ListLabOrders(ctx, orderdomain.ListOrderRequest{PatientID: &first.PatientID})
	require.NoError(t, err)
	require.Len(t, byPatient, 1)
	assert.Equal(t, first.ID, byPatient[0].ID)

	cancelled := orderdomain.OrderStatusCancelled
	byStatus, err := f.orders.ListLabOrders(ctx, orderdomain.ListOrderRequest{Status: &cancelled})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)

	all, err := f.orders.ListLabOrders(ctx, orderdomain.ListOrderRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
