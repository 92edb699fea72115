package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/clinicore/ledger/internal/catalog/domain"
	"github.com/clinicore/ledger/pkg/db/option"
	"github.com/clinicore/ledger/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSearchLimit = 50

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	procedures repository.Repository[catalogdomain.ProcedureCode]
	diagnoses  repository.Repository[catalogdomain.DiagnosisCode]
}

func NewService(p Params) catalogdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("catalog.service"),

		procedures: repository.ProvideStore[catalogdomain.ProcedureCode](p.DB),
		diagnoses:  repository.ProvideStore[catalogdomain.DiagnosisCode](p.DB),
	}
}

func (s *Service) GetProcedureCode(ctx context.Context, id snowflake.ID) (catalogdomain.ProcedureCode, error) {
	code, err := s.procedures.FindOne(ctx, &catalogdomain.ProcedureCode{ID: id})
	if err != nil {
		return catalogdomain.ProcedureCode{}, err
	}
	if code == nil || !code.IsActive {
		return catalogdomain.ProcedureCode{}, catalogdomain.ErrCodeNotFound
	}
	return *code, nil
}

func (s *Service) SearchProcedureCodes(ctx context.Context, req catalogdomain.SearchRequest) ([]catalogdomain.ProcedureCode, error) {
	query := &catalogdomain.ProcedureCode{IsActive: true, Category: strings.TrimSpace(req.Category)}
	rows, err := s.procedures.Find(ctx, query, searchOpts(req)...)
	if err != nil {
		return nil, err
	}
	return collect(rows), nil
}

func (s *Service) SearchDiagnosisCodes(ctx context.Context, req catalogdomain.SearchRequest) ([]catalogdomain.DiagnosisCode, error) {
	query := &catalogdomain.DiagnosisCode{IsActive: true, Category: strings.TrimSpace(req.Category)}
	rows, err := s.diagnoses.Find(ctx, query, searchOpts(req)...)
	if err != nil {
		return nil, err
	}
	return collect(rows), nil
}

func searchOpts(req catalogdomain.SearchRequest) []option.QueryOption {
	limit := req.Limit
	if limit <= 0 || limit > defaultSearchLimit {
		limit = defaultSearchLimit
	}
	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{Default: "code"}),
		option.WithLimit(limit),
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		opts = append(opts, option.WithSearch([]string{"code", "description"}, search))
	}
	return opts
}

func collect[T any](rows []*T) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		out = append(out, *row)
	}
	return out
}
