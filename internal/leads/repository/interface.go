package repository

import (
	"context"

	"github.com/google/uuid"

	"permitleads_backend/internal/leads/domain"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	GetByCanonicalKey(ctx context.Context, key string) (domain.Lead, error)
	List(ctx context.Context, params ListParams) ([]domain.Lead, int, error)
	ListAll(ctx context.Context, params ListParams) ([]domain.Lead, error)
}

// LeadWriter provides write operations for ingestion and operator edits.
type LeadWriter interface {
	Upsert(ctx context.Context, lead domain.Lead, opts UpsertOptions) (UpsertResult, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) (domain.Lead, error)
}

// CoordinateBackfill serves the geocode backfill job.
type CoordinateBackfill interface {
	ListMissingCoordinates(ctx context.Context, params MissingCoordinatesParams) ([]domain.Lead, error)
	UpdateCoordinates(ctx context.Context, id uuid.UUID, lat, lon float64) error
}

// LeadsRepository composes all lead-related repository interfaces.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	CoordinateBackfill
}

var _ LeadsRepository = (*Repository)(nil)
