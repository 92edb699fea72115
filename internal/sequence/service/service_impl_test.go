package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/clinicore/ledger/internal/clock"
	sequencedomain "github.com/clinicore/ledger/internal/sequence/domain"
	sequenceservice "github.com/clinicore/ledger/internal/sequence/service"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&sequencedomain.DocumentSequence{}))
	return db
}

func newAllocator(t *testing.T, db *gorm.DB, now time.Time) sequencedomain.Allocator {
	t.Helper()
	return sequenceservice.NewService(sequenceservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(now),
	})
}

func TestNextFormatsAndIncrements(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	alloc := newAllocator(t, db, time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))

	first, err := alloc.Next(ctx, sequencedomain.KindInvoice, 0)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-00001", first)

	second, err := alloc.Next(ctx, sequencedomain.KindInvoice, 0)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-00002", second)
}

func TestNextIsolatesKindsAndYears(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	alloc := newAllocator(t, db, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	inv, err := alloc.Next(ctx, sequencedomain.KindInvoice, 0)
	require.NoError(t, err)
	pay, err := alloc.Next(ctx, sequencedomain.KindPayment, 0)
	require.NoError(t, err)
	clm, err := alloc.Next(ctx, sequencedomain.KindClaim, 0)
	require.NoError(t, err)

	assert.Equal(t, "INV-2025-00001", inv)
	assert.Equal(t, "PAY-2025-00001", pay)
	assert.Equal(t, "CLM-2025-00001", clm)

	// A different year starts its own counter.
	prior, err := alloc.Next(ctx, sequencedomain.KindInvoice, 2024)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-00001", prior)

	next, err := alloc.Next(ctx, sequencedomain.KindInvoice, 0)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-00002", next)
}

func TestNextUnknownKind(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	alloc := newAllocator(t, db, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	_, err := alloc.Next(ctx, sequencedomain.Kind("prescription"), 0)
	assert.ErrorIs(t, err, sequencedomain.ErrUnknownKind)
}

func TestConcurrentAllocationsAreUnique(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	alloc := newAllocator(t, db, time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC))

	const n = 25
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]struct{}, n)
	)
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := alloc.Next(ctx, sequencedomain.KindInvoice, 0)
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			numbers[number] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("allocation failed: %v", err)
	}
	assert.Len(t, numbers, n, "every concurrent allocation must yield a distinct number")
}
