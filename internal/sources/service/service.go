// Package service holds the crawl source registry logic.
package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/internal/sources/repository"
	"permitleads_backend/internal/sources/transport"
	"permitleads_backend/platform/apperr"
	"permitleads_backend/platform/logger"
)

const defaultSourceType = "permit"

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9-]+`)
	slugHyphenRuns   = regexp.MustCompile(`-+`)
)

// Service provides business logic for the source registry.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new sources service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// GetByID retrieves a source by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.SourceResponse, error) {
	src, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.SourceResponse{}, err
	}
	return toResponse(src), nil
}

// List retrieves the registry, optionally only active sources.
func (s *Service) List(ctx context.Context, req transport.ListSourcesRequest) (transport.SourceListResponse, error) {
	items, err := s.repo.List(ctx, req.Active)
	if err != nil {
		return transport.SourceListResponse{}, err
	}
	responses := make([]transport.SourceResponse, len(items))
	for i, item := range items {
		responses[i] = toResponse(item)
	}
	return transport.SourceListResponse{Items: responses, Total: len(responses)}, nil
}

// Active returns the sources the crawler should visit.
func (s *Service) Active(ctx context.Context) ([]domain.Source, error) {
	return s.repo.List(ctx, true)
}

// Source returns the registry entry for the crawler.
func (s *Service) Source(ctx context.Context, id uuid.UUID) (domain.Source, error) {
	return s.repo.GetByID(ctx, id)
}

// Create registers a new source.
func (s *Service) Create(ctx context.Context, req transport.CreateSourceRequest) (transport.SourceResponse, error) {
	slug := Slugify(req.Name)
	if slug == "" {
		return transport.SourceResponse{}, apperr.Validation("name must contain letters or digits")
	}

	src, err := s.repo.Create(ctx, repository.CreateParams{
		Name:   strings.TrimSpace(req.Name),
		Slug:   slug,
		URL:    strings.TrimSpace(req.URL),
		Type:   sourceType(req.Type),
		County: trimmed(req.County),
		Town:   trimmed(req.Town),
		Active: req.Active == nil || *req.Active,
	})
	if err != nil {
		return transport.SourceResponse{}, err
	}

	s.log.Info("source created", "id", src.ID, "slug", src.Slug)
	return toResponse(src), nil
}

// Update applies partial edits to a source.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateSourceRequest) (transport.SourceResponse, error) {
	src, err := s.repo.Update(ctx, repository.UpdateParams{
		ID:         id,
		Name:       trimmed(req.Name),
		URL:        trimmed(req.URL),
		Type:       req.Type,
		County:     trimmed(req.County),
		Town:       trimmed(req.Town),
		Active:     req.Active,
		LastRun:    req.LastRun,
		LastStatus: req.LastStatus,
	})
	if err != nil {
		return transport.SourceResponse{}, err
	}

	s.log.Info("source updated", "id", src.ID, "slug", src.Slug)
	return toResponse(src), nil
}

// Upsert creates or replaces the source identified by slug (or by the
// slugified name when no slug is given).
func (s *Service) Upsert(ctx context.Context, req transport.UpsertSourceRequest) (transport.SourceResponse, error) {
	slug := Slugify(req.Slug)
	if slug == "" {
		slug = Slugify(req.Name)
	}
	if slug == "" {
		return transport.SourceResponse{}, apperr.Validation("slug or name must contain letters or digits")
	}

	src, err := s.repo.Upsert(ctx, repository.UpsertParams{
		CreateParams: repository.CreateParams{
			Name:   strings.TrimSpace(req.Name),
			Slug:   slug,
			URL:    strings.TrimSpace(req.URL),
			Type:   sourceType(req.Type),
			County: trimmed(req.County),
			Town:   trimmed(req.Town),
			Active: req.Active == nil || *req.Active,
		},
		LastRun:    req.LastRun,
		LastStatus: req.LastStatus,
	})
	if err != nil {
		return transport.SourceResponse{}, err
	}

	s.log.Info("source upserted", "id", src.ID, "slug", src.Slug)
	return toResponse(src), nil
}

// RecordRun stores when a source was last crawled and how it went.
func (s *Service) RecordRun(ctx context.Context, id uuid.UUID, at time.Time, status string) error {
	return s.repo.RecordRun(ctx, id, at, status)
}

// Slugify creates a URL-friendly slug from a name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = slugInvalidChars.ReplaceAllString(slug, "")
	slug = slugHyphenRuns.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func sourceType(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return defaultSourceType
	}
	return value
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	return &v
}

func toResponse(src domain.Source) transport.SourceResponse {
	return transport.SourceResponse{
		ID:         src.ID,
		Name:       src.Name,
		Slug:       src.Slug,
		URL:        src.URL,
		Type:       src.Type,
		County:     src.County,
		Town:       src.Town,
		Active:     src.Active,
		LastRun:    src.LastRun,
		LastStatus: src.LastStatus,
		CreatedAt:  src.CreatedAt,
	}
}
