package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type SearchRequest struct {
	Search   string
	Category string
	Limit    int
}

type Service interface {
	GetProcedureCode(ctx context.Context, id snowflake.ID) (ProcedureCode, error)
	SearchProcedureCodes(ctx context.Context, req SearchRequest) ([]ProcedureCode, error)
	SearchDiagnosisCodes(ctx context.Context, req SearchRequest) ([]DiagnosisCode, error)
}

var (
	ErrCodeNotFound = errors.New("billing_code_not_found")
)
