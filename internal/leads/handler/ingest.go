package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/internal/leads/ingest"
	"permitleads_backend/internal/leads/transport"
	"permitleads_backend/platform/httpkit"
	"permitleads_backend/platform/logger"
	"permitleads_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	ChannelFirecrawl    = "firecrawl"
	ChannelN8n          = "n8n"
	ChannelWebhookBatch = "webhook-batch"

	msgIngestionFailed = "ingestion failed"
	msgEmptyBatch      = "leads must be a non-empty array"

	healthPingTimeout = 3 * time.Second
)

// Pinger reports storage reachability for the ingestion health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IngestHandler serves the write-side ingestion routes. All of them funnel
// into ingest.Service so every channel gets the same normalization.
type IngestHandler struct {
	svc   *ingest.Service
	val   *validator.Validator
	db    Pinger
	guard *httpkit.AdminGuard
	log   *logger.Logger
}

func NewIngestHandler(svc *ingest.Service, val *validator.Validator, db Pinger, guard *httpkit.AdminGuard, log *logger.Logger) *IngestHandler {
	return &IngestHandler{svc: svc, val: val, db: db, guard: guard, log: log}
}

// Firecrawl accepts an array of free-text permit records. Any pre-split
// address fields are ignored and the record is parsed from rawAddress.
func (h *IngestHandler) Firecrawl(c *gin.Context) {
	items, raw, ok := h.readArray(c)
	if !ok {
		return
	}

	records := ingest.DecodeRecords(h.val, items, func(rec *transport.LeadRecord) error {
		rec.Kind = string(domain.KindPermit)
		rec.Street, rec.City, rec.State, rec.Zip = nil, nil, nil, nil
		return nil
	})
	h.runBatch(c, ChannelFirecrawl, records, raw)
}

// N8n accepts an array of pre-structured records.
func (h *IngestHandler) N8n(c *gin.Context) {
	items, raw, ok := h.readArray(c)
	if !ok {
		return
	}

	records := ingest.DecodeRecords(h.val, items, func(rec *transport.LeadRecord) error {
		return rec.RequireStructured()
	})
	h.runBatch(c, ChannelN8n, records, raw)
}

// WebhookBatch accepts the {"leads": [...]} envelope.
func (h *IngestHandler) WebhookBatch(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var envelope struct {
		Leads []json.RawMessage `json:"leads"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if len(envelope.Leads) == 0 {
		httpkit.Error(c, http.StatusBadRequest, msgEmptyBatch, nil)
		return
	}

	records := ingest.DecodeRecords(h.val, envelope.Leads, func(rec *transport.LeadRecord) error {
		return rec.RequireStructured()
	})
	h.runBatch(c, ChannelWebhookBatch, records, raw)
}

// WebhookLead ingests a single structured record.
func (h *IngestHandler) WebhookLead(c *gin.Context) {
	var req transport.LeadRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Describe(err))
		return
	}
	if err := req.RequireStructured(); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	input := req.ToRawInput()
	result, err := h.svc.IngestOne(c.Request.Context(), input)
	if err != nil {
		h.log.IngestRecordFailed(input.Source, 0, input.RawAddress, err)
		httpkit.Error(c, http.StatusInternalServerError, msgIngestionFailed, nil)
		return
	}

	httpkit.OK(c, transport.WebhookLeadResponse{
		Success: true,
		Action:  string(result.Action),
		ID:      result.ID,
	})
}

// Health reports storage reachability and whether any admin credential is set.
// Missing admin configuration is reported but does not fail the check.
func (h *IngestHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	resp := transport.IngestHealthResponse{
		DB:    transport.HealthComponent{OK: true},
		Admin: h.guard != nil && h.guard.Configured(),
	}
	if err := h.db.Ping(ctx); err != nil {
		h.log.DatabaseError("ingest_health_ping", err)
		resp.DB = transport.HealthComponent{OK: false, Message: "database unreachable"}
	}
	resp.OK = resp.DB.OK

	status := http.StatusOK
	if !resp.OK {
		status = http.StatusServiceUnavailable
	}
	httpkit.JSON(c, status, resp)
}

func (h *IngestHandler) readArray(c *gin.Context) ([]json.RawMessage, []byte, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return nil, nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "body must be a JSON array of records")
		return nil, nil, false
	}
	return items, raw, true
}

func (h *IngestHandler) runBatch(c *gin.Context, channel string, records []ingest.Record, raw []byte) {
	result := h.svc.Ingest(c.Request.Context(), ingest.Batch{
		Channel: channel,
		Records: records,
		Raw:     raw,
	})
	httpkit.OK(c, toIngestResponse(result))
}

func toIngestResponse(result ingest.BatchResult) transport.IngestResponse {
	resp := transport.IngestResponse{
		Success:  true,
		BatchID:  result.BatchID,
		Count:    result.Count,
		Results:  make([]transport.IngestResult, len(result.Results)),
		Failures: make([]transport.IngestFailure, len(result.Failures)),
	}
	for i, r := range result.Results {
		resp.Results[i] = transport.IngestResult{
			Index:        r.Index,
			ID:           r.ID,
			CanonicalKey: r.CanonicalKey,
			Action:       string(r.Action),
		}
	}
	for i, f := range result.Failures {
		resp.Failures[i] = transport.IngestFailure{
			Index:      f.Index,
			Source:     f.Source,
			RawAddress: f.RawAddress,
			Error:      f.Error,
		}
	}
	return resp
}
