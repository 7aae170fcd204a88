package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateSourceRequest registers a crawl target. The slug is derived from the name.
type CreateSourceRequest struct {
	Name   string  `json:"name" validate:"notblank,max=200"`
	URL    string  `json:"url" validate:"required,url,max=2000"`
	Type   string  `json:"type,omitempty" validate:"omitempty,oneof=permit assessor builder other"`
	County *string `json:"county,omitempty" validate:"omitempty,max=100"`
	Town   *string `json:"town,omitempty" validate:"omitempty,max=100"`
	Active *bool   `json:"active,omitempty"`
}

// UpdateSourceRequest carries partial edits, typically run bookkeeping.
type UpdateSourceRequest struct {
	Name       *string    `json:"name,omitempty" validate:"omitempty,notblank,max=200"`
	URL        *string    `json:"url,omitempty" validate:"omitempty,url,max=2000"`
	Type       *string    `json:"type,omitempty" validate:"omitempty,oneof=permit assessor builder other"`
	County     *string    `json:"county,omitempty" validate:"omitempty,max=100"`
	Town       *string    `json:"town,omitempty" validate:"omitempty,max=100"`
	Active     *bool      `json:"active,omitempty"`
	LastRun    *time.Time `json:"lastRun,omitempty"`
	LastStatus *string    `json:"lastStatus,omitempty" validate:"omitempty,max=500"`
}

// UpsertSourceRequest is the admin registry upsert keyed by slug.
type UpsertSourceRequest struct {
	Name       string     `json:"name" validate:"notblank,max=200"`
	Slug       string     `json:"slug,omitempty" validate:"omitempty,max=200"`
	URL        string     `json:"url" validate:"required,url,max=2000"`
	Type       string     `json:"type,omitempty" validate:"omitempty,oneof=permit assessor builder other"`
	County     *string    `json:"county,omitempty" validate:"omitempty,max=100"`
	Town       *string    `json:"town,omitempty" validate:"omitempty,max=100"`
	Active     *bool      `json:"active,omitempty"`
	LastRun    *time.Time `json:"lastRun,omitempty"`
	LastStatus *string    `json:"lastStatus,omitempty" validate:"omitempty,max=500"`
}

type ListSourcesRequest struct {
	Active bool `form:"active"`
}

type SourceResponse struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Slug       string     `json:"slug"`
	URL        string     `json:"url"`
	Type       string     `json:"type"`
	County     *string    `json:"county,omitempty"`
	Town       *string    `json:"town,omitempty"`
	Active     bool       `json:"active"`
	LastRun    *time.Time `json:"lastRun,omitempty"`
	LastStatus *string    `json:"lastStatus,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type SourceListResponse struct {
	Items []SourceResponse `json:"items"`
	Total int              `json:"total"`
}
