// Package management handles operator-facing lead reads and edits.
// This is a vertically sliced feature package containing service logic
// for listing, reading and annotating ingested leads.
package management

import (
	"context"
	"errors"
	"strings"
	"time"

	"permitleads_backend/internal/events"
	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/internal/leads/ingest"
	"permitleads_backend/internal/leads/repository"
	"permitleads_backend/internal/leads/scoring"
	"permitleads_backend/internal/leads/transport"
	"permitleads_backend/platform/apperr"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// Repository defines the data access interface needed by the management service.
// This is a consumer-driven interface - only what management needs.
type Repository interface {
	repository.LeadReader
	Update(ctx context.Context, id uuid.UUID, params repository.UpdateParams) (domain.Lead, error)
}

// Service handles lead management operations.
type Service struct {
	repo   Repository
	scorer *scoring.Service
	bus    events.Bus
}

// New creates a new lead management service.
func New(repo Repository, scorer *scoring.Service, bus events.Bus) *Service {
	return &Service{repo: repo, scorer: scorer, bus: bus}
}

// GetByID retrieves a lead by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead), nil
}

// List retrieves a filtered page of leads, best first.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	if req.Limit < 1 {
		req.Limit = transport.DefaultListLimit
	}
	if req.Limit > transport.MaxListLimit {
		req.Limit = transport.MaxListLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	params, err := ListParamsFrom(req)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, len(leads))
	for i, lead := range leads {
		items[i] = ToLeadResponse(lead)
	}

	return transport.LeadListResponse{
		Data:   items,
		Total:  total,
		Limit:  req.Limit,
		Offset: req.Offset,
	}, nil
}

// Patch applies operator edits. A status change rescores the lead at the
// current instant since status is a scoring signal.
func (s *Service) Patch(ctx context.Context, id uuid.UUID, req transport.PatchLeadRequest, actor string) (transport.LeadResponse, error) {
	if req.Empty() {
		return transport.LeadResponse{}, apperr.BadRequest("no fields to update")
	}

	params := repository.UpdateParams{Notes: req.Notes}
	fields := make([]string, 0, 3)
	if req.Notes != nil {
		fields = append(fields, "notes")
	}
	if req.Tags.Set {
		params.Tags = ingest.NormalizeTags(req.Tags.Value)
		params.TagsSet = true
		fields = append(fields, "tags")
	}

	if req.Status != nil {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return transport.LeadResponse{}, apperr.NotFound("lead not found")
			}
			return transport.LeadResponse{}, err
		}

		status := strings.TrimSpace(*req.Status)
		current.Status = &status
		result := s.scorer.Score(ingest.SignalsOf(current))

		params.Status = &status
		params.Score = &result.Score
		params.ScoreUpdatedAt = &result.EvaluatedAt
		fields = append(fields, "status")
	}

	lead, err := s.repo.Update(ctx, id, params)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadUpdated{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			Actor:     actor,
			Fields:    fields,
			Score:     lead.Score,
		})
	}

	return ToLeadResponse(lead), nil
}

// ListParamsFrom converts list query parameters to repository filters.
func ListParamsFrom(req transport.ListLeadsRequest) (repository.ListParams, error) {
	params := repository.ListParams{
		Search:   strings.TrimSpace(req.Search),
		MinScore: req.MinScore,
		County:   strings.TrimSpace(req.County),
		Town:     strings.TrimSpace(req.Town),
		Source:   strings.TrimSpace(req.Source),
		Status:   strings.TrimSpace(req.Status),
		Limit:    req.Limit,
		Offset:   req.Offset,
	}

	var err error
	if params.DateFrom, err = parseDate(req.DateFrom, "dateFrom"); err != nil {
		return repository.ListParams{}, err
	}
	if params.DateTo, err = parseDate(req.DateTo, "dateTo"); err != nil {
		return repository.ListParams{}, err
	}
	if params.DateFrom != nil && params.DateTo != nil && params.DateTo.Before(*params.DateFrom) {
		return repository.ListParams{}, apperr.Validation("dateTo must not be before dateFrom")
	}
	return params, nil
}

func parseDate(value, field string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, apperr.Validation(field + " must be YYYY-MM-DD")
	}
	return &parsed, nil
}
