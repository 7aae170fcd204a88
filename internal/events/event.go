// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"permitleads_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types so modules depend on internal/events only.
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Ingestion Events
// =============================================================================

// LeadsIngested is published after every ingestion batch, including batches
// where every record failed. Raw carries the request body as received.
type LeadsIngested struct {
	BaseEvent
	BatchID   uuid.UUID `json:"batchId"`
	Channel   string    `json:"channel"`
	Received  int       `json:"received"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Raw       []byte    `json:"-"`
}

func (e LeadsIngested) EventName() string { return "leads.batch.ingested" }

// =============================================================================
// Lead Events
// =============================================================================

// LeadUpdated is published when an operator edits a lead.
type LeadUpdated struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Actor  string    `json:"actor"`
	Fields []string  `json:"fields"`
	Score  int       `json:"score"`
}

func (e LeadUpdated) EventName() string { return "leads.lead.updated" }

// =============================================================================
// Crawl Events
// =============================================================================

// SourceCrawled is published when a crawl of one registry source finishes.
type SourceCrawled struct {
	BaseEvent
	SourceID uuid.UUID `json:"sourceId"`
	Slug     string    `json:"slug"`
	Rows     int       `json:"rows"`
	Ingested int       `json:"ingested"`
	Status   string    `json:"status"`
}

func (e SourceCrawled) EventName() string { return "sources.crawl.finished" }
