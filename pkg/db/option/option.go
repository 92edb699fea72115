package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type Operator string

const (
	EQ  Operator = "="
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

// Condition is a single field comparison.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

type conditionOption struct {
	cond Condition
}

func (o conditionOption) Apply(db *gorm.DB) *gorm.DB {
	field := strings.TrimSpace(o.cond.Field)
	if field == "" {
		return db
	}
	return db.Where(fmt.Sprintf("%s %s ?", field, o.cond.Operator), o.cond.Value)
}

func ApplyOperator(cond Condition) QueryOption {
	return conditionOption{cond: cond}
}

// QuerySortBy restricts sortable columns to an allow list.
type QuerySortBy struct {
	Allow   map[string]bool
	Field   string
	Desc    bool
	Default string
}

type sortOption struct {
	sort QuerySortBy
}

func (o sortOption) Apply(db *gorm.DB) *gorm.DB {
	field := strings.TrimSpace(o.sort.Field)
	if field == "" || !o.sort.Allow[field] {
		field = o.sort.Default
	}
	if field == "" {
		return db
	}
	direction := "asc"
	if o.sort.Desc {
		direction = "desc"
	}
	return db.Order(fmt.Sprintf("%s %s", field, direction))
}

func WithSortBy(sort QuerySortBy) QueryOption {
	return sortOption{sort: sort}
}

type searchOption struct {
	fields []string
	term   string
}

func (o searchOption) Apply(db *gorm.DB) *gorm.DB {
	term := strings.TrimSpace(o.term)
	if term == "" || len(o.fields) == 0 {
		return db
	}
	pattern := "%" + term + "%"
	clauses := make([]string, 0, len(o.fields))
	args := make([]any, 0, len(o.fields))
	for _, field := range o.fields {
		clauses = append(clauses, field+" LIKE ?")
		args = append(args, pattern)
	}
	return db.Where(strings.Join(clauses, " OR "), args...)
}

// WithSearch matches the term as a substring against any of the fields.
func WithSearch(fields []string, term string) QueryOption {
	return searchOption{fields: fields, term: term}
}

type limitOption struct {
	limit int
}

func (o limitOption) Apply(db *gorm.DB) *gorm.DB {
	if o.limit <= 0 {
		return db
	}
	return db.Limit(o.limit)
}

func WithLimit(limit int) QueryOption {
	return limitOption{limit: limit}
}
