package dto

import "github.com/spec-kit/case-service/internal/repository"

const (
	defaultLimit = 10
	maxLimit     = 100
)

// PageQuery captures ?limit=&page= list parameters.
type PageQuery struct {
	Limit int `query:"limit"`
	Page  int `query:"page"`
}

// Normalize applies defaults: limit 10 (at most 100), page 1.
func (q PageQuery) Normalize() PageQuery {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return q
}

// Repository converts the query into a store window.
func (q PageQuery) Repository() repository.Page {
	n := q.Normalize()
	return repository.Page{Limit: n.Limit, Offset: (n.Page - 1) * n.Limit}
}

// Pagination describes the returned window.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// NewPagination reports the window of q over total items.
func NewPagination(q PageQuery, total int) Pagination {
	n := q.Normalize()
	return Pagination{Page: n.Page, Limit: n.Limit, Total: total}
}
