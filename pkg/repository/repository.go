package repository

import (
	"context"

	"github.com/clinicore/ledger/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a minimal typed store over gorm for simple filtered reads
// and writes. Aggregate mutations with invariants live in the services, not here.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Count(ctx context.Context, query *T) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
}
