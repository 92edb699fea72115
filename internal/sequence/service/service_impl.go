package service

import (
	"context"
	"fmt"

	"github.com/clinicore/ledger/internal/clock"
	sequencedomain "github.com/clinicore/ledger/internal/sequence/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func NewService(p Params) sequencedomain.Allocator {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("sequence.service"),
		clock: p.Clock,
	}
}

func (s *Service) Next(ctx context.Context, kind sequencedomain.Kind, year int) (string, error) {
	var number string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issued, err := s.NextInTx(ctx, tx, kind, year)
		if err != nil {
			return err
		}
		number = issued
		return nil
	})
	if err != nil {
		return "", err
	}
	return number, nil
}

func (s *Service) NextInTx(ctx context.Context, tx *gorm.DB, kind sequencedomain.Kind, year int) (string, error) {
	prefix, ok := kind.Prefix()
	if !ok {
		return "", sequencedomain.ErrUnknownKind
	}
	if year == 0 {
		year = s.clock.Now().Year()
	}

	// Single-statement atomic increment. Two concurrent allocations serialize
	// on the row and observe distinct counter values; counting existing
	// documents instead would hand the same number to both.
	now := s.clock.Now()
	var counter int64
	err := tx.WithContext(ctx).Raw(
		`INSERT INTO document_sequences (kind, year, counter, created_at, updated_at)
		 VALUES (?, ?, 1, ?, ?)
		 ON CONFLICT (kind, year)
		 DO UPDATE SET counter = document_sequences.counter + 1, updated_at = ?
		 RETURNING counter`,
		string(kind),
		year,
		now,
		now,
		now,
	).Scan(&counter).Error
	if err != nil {
		s.log.Error("document number allocation failed",
			zap.String("kind", string(kind)),
			zap.Int("year", year),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", sequencedomain.ErrStorageUnavailable, err)
	}
	if counter <= 0 {
		return "", sequencedomain.ErrStorageUnavailable
	}

	return fmt.Sprintf("%s-%d-%05d", prefix, year, counter), nil
}
