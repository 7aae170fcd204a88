package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"permitleads_backend/internal/leads/domain"
)

// CreateParams contains parameters for creating a source.
type CreateParams struct {
	Name   string
	Slug   string
	URL    string
	Type   string
	County *string
	Town   *string
	Active bool
}

// UpdateParams contains parameters for updating a source. Nil fields are kept.
type UpdateParams struct {
	ID         uuid.UUID
	Name       *string
	URL        *string
	Type       *string
	County     *string
	Town       *string
	Active     *bool
	LastRun    *time.Time
	LastStatus *string
}

// UpsertParams replaces the registry entry identified by Slug.
type UpsertParams struct {
	CreateParams
	LastRun    *time.Time
	LastStatus *string
}

// SourceReader provides read operations for sources.
type SourceReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Source, error)
	GetBySlug(ctx context.Context, slug string) (domain.Source, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Source, error)
}

// SourceWriter provides write operations for sources.
type SourceWriter interface {
	Create(ctx context.Context, params CreateParams) (domain.Source, error)
	Update(ctx context.Context, params UpdateParams) (domain.Source, error)
	Upsert(ctx context.Context, params UpsertParams) (domain.Source, error)
	RecordRun(ctx context.Context, id uuid.UUID, at time.Time, status string) error
}

// Repository combines all source storage operations.
type Repository interface {
	SourceReader
	SourceWriter
}
