package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/platform/apperr"
	"permitleads_backend/platform/db"
)

const (
	sourceNotFoundMessage = "source not found"
	uniqueViolation       = "23505"

	sourceColumns = `id, name, slug, url, type, county, town, active, last_run, last_status, created_at`
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	db db.Querier
}

// New creates a new sources repository.
func New(q db.Querier) *Repo {
	return &Repo{db: q}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a source by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1`

	src, err := scanSource(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Source{}, apperr.NotFound(sourceNotFoundMessage)
		}
		return domain.Source{}, fmt.Errorf("get source by id: %w", err)
	}
	return src, nil
}

// GetBySlug retrieves a source by its slug.
func (r *Repo) GetBySlug(ctx context.Context, slug string) (domain.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE slug = $1`

	src, err := scanSource(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Source{}, apperr.NotFound(sourceNotFoundMessage)
		}
		return domain.Source{}, fmt.Errorf("get source by slug: %w", err)
	}
	return src, nil
}

// List retrieves sources ordered by name.
func (r *Repo) List(ctx context.Context, activeOnly bool) ([]domain.Source, error) {
	query := `
		SELECT ` + sourceColumns + `
		FROM sources
		WHERE ($1::boolean = false OR active)
		ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	results := make([]domain.Source, 0)
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		results = append(results, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return results, nil
}

// Create inserts a new source. A duplicate slug is a conflict.
func (r *Repo) Create(ctx context.Context, params CreateParams) (domain.Source, error) {
	query := `
		INSERT INTO sources (name, slug, url, type, county, town, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + sourceColumns

	src, err := scanSource(r.db.QueryRow(ctx, query,
		params.Name, params.Slug, params.URL, params.Type, params.County, params.Town, params.Active,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Source{}, apperr.Conflict("a source with this slug already exists")
		}
		return domain.Source{}, fmt.Errorf("create source: %w", err)
	}
	return src, nil
}

// Update changes the supplied fields of a source.
func (r *Repo) Update(ctx context.Context, params UpdateParams) (domain.Source, error) {
	query := `
		UPDATE sources SET
			name = COALESCE($2, name),
			url = COALESCE($3, url),
			type = COALESCE($4, type),
			county = COALESCE($5, county),
			town = COALESCE($6, town),
			active = COALESCE($7, active),
			last_run = COALESCE($8, last_run),
			last_status = COALESCE($9, last_status)
		WHERE id = $1
		RETURNING ` + sourceColumns

	src, err := scanSource(r.db.QueryRow(ctx, query,
		params.ID, params.Name, params.URL, params.Type, params.County, params.Town,
		params.Active, params.LastRun, params.LastStatus,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Source{}, apperr.NotFound(sourceNotFoundMessage)
		}
		return domain.Source{}, fmt.Errorf("update source: %w", err)
	}
	return src, nil
}

// Upsert inserts or replaces the source with the same slug.
func (r *Repo) Upsert(ctx context.Context, params UpsertParams) (domain.Source, error) {
	query := `
		INSERT INTO sources (name, slug, url, type, county, town, active, last_run, last_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			type = EXCLUDED.type,
			county = EXCLUDED.county,
			town = EXCLUDED.town,
			active = EXCLUDED.active,
			last_run = COALESCE(EXCLUDED.last_run, sources.last_run),
			last_status = COALESCE(EXCLUDED.last_status, sources.last_status)
		RETURNING ` + sourceColumns

	src, err := scanSource(r.db.QueryRow(ctx, query,
		params.Name, params.Slug, params.URL, params.Type, params.County, params.Town, params.Active,
		params.LastRun, params.LastStatus,
	))
	if err != nil {
		return domain.Source{}, fmt.Errorf("upsert source %s: %w", params.Slug, err)
	}
	return src, nil
}

// RecordRun stores the outcome of the latest crawl.
func (r *Repo) RecordRun(ctx context.Context, id uuid.UUID, at time.Time, status string) error {
	result, err := r.db.Exec(ctx, `UPDATE sources SET last_run = $2, last_status = $3 WHERE id = $1`, id, at, status)
	if err != nil {
		return fmt.Errorf("record source run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(sourceNotFoundMessage)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (domain.Source, error) {
	var src domain.Source
	err := row.Scan(
		&src.ID, &src.Name, &src.Slug, &src.URL, &src.Type, &src.County, &src.Town,
		&src.Active, &src.LastRun, &src.LastStatus, &src.CreatedAt,
	)
	return src, err
}
