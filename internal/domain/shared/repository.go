package shared

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the base interface for all repositories
type Repository[T any] interface {
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	Save(ctx context.Context, aggregate *T) error
	Delete(ctx context.Context, id uuid.UUID) error
	ExistsBy(ctx context.Context, field string, value interface{}) (bool, error)
}

// OwnedRepository extends Repository with owner-scoped queries
type OwnedRepository[T any] interface {
	Repository[T]
	FindAllForOwner(ctx context.Context, ownerID uuid.UUID, filter Filter) ([]T, error)
	CountForOwner(ctx context.Context, ownerID uuid.UUID, filter Filter) (int64, error)
	DeleteForOwner(ctx context.Context, ownerID, id uuid.UUID) error
}

// Filter provides common query filtering options
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]interface{}
}

// DefaultFilter returns a filter with sensible defaults
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 10,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  make(map[string]interface{}),
	}
}

// Offset returns the offset for pagination
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Limit returns the limit for pagination
func (f Filter) Limit() int {
	if f.PageSize < 1 {
		return 10
	}
	return f.PageSize
}

// Paginated wraps a page of results with pagination metadata
type Paginated[T any] struct {
	Items      []T
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// NewPaginated creates a paginated result
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
