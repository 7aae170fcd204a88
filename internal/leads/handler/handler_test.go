package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/internal/leads/ingest"
	"permitleads_backend/internal/leads/management"
	"permitleads_backend/internal/leads/repository"
	"permitleads_backend/internal/leads/transport"
	"permitleads_backend/platform/config"
	"permitleads_backend/platform/httpkit"
	"permitleads_backend/platform/logger"
	"permitleads_backend/platform/validator"
)

type memoryLeads struct {
	byKey map[string]domain.Lead
}

func (m *memoryLeads) GetByCanonicalKey(_ context.Context, key string) (domain.Lead, error) {
	lead, ok := m.byKey[key]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (m *memoryLeads) Upsert(_ context.Context, lead domain.Lead, _ repository.UpsertOptions) (repository.UpsertResult, error) {
	existing, ok := m.byKey[lead.CanonicalKey]
	if ok {
		lead.ID = existing.ID
	} else {
		lead.ID = uuid.New()
	}
	m.byKey[lead.CanonicalKey] = lead
	return repository.UpsertResult{ID: lead.ID, Inserted: !ok}, nil
}

func (m *memoryLeads) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	for _, lead := range m.byKey {
		if lead.ID == id {
			return lead, nil
		}
	}
	return domain.Lead{}, repository.ErrNotFound
}

func (m *memoryLeads) List(context.Context, repository.ListParams) ([]domain.Lead, int, error) {
	out := make([]domain.Lead, 0, len(m.byKey))
	for _, lead := range m.byKey {
		out = append(out, lead)
	}
	return out, len(out), nil
}

func (m *memoryLeads) ListAll(ctx context.Context, params repository.ListParams) ([]domain.Lead, error) {
	leads, _, err := m.List(ctx, params)
	return leads, err
}

func (m *memoryLeads) Update(ctx context.Context, id uuid.UUID, params repository.UpdateParams) (domain.Lead, error) {
	lead, err := m.GetByID(ctx, id)
	if err != nil {
		return domain.Lead{}, err
	}
	if params.Notes != nil {
		lead.Notes = params.Notes
	}
	m.byKey[lead.CanonicalKey] = lead
	return lead, nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type guardConfig struct{ tokens []string }

func (g guardConfig) GetAdminTokens() []string    { return g.tokens }
func (g guardConfig) IsAdminAuthConfigured() bool { return len(g.tokens) > 0 }
func (g guardConfig) GetJWTAccessSecret() string  { return "" }

func newTestEngine(store *memoryLeads, db Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)

	j := config.DefaultJurisdiction()
	normalizer := ingest.NewJurisdictionNormalizer(j)
	log := logger.Discard()
	val := validator.New()
	guard := httpkit.NewAdminGuard(guardConfig{tokens: []string{"secret"}}, log)

	ih := NewIngestHandler(ingest.NewService(normalizer, store, nil, nil, log), val, db, guard, log)
	lh := New(management.New(store, normalizer.Scorer(), nil), val)

	engine := gin.New()
	engine.GET("/ingest/health", ih.Health)
	engine.POST("/ingest/firecrawl", ih.Firecrawl)
	engine.POST("/ingest/n8n", ih.N8n)
	engine.POST("/webhook/n8n/leads", ih.WebhookLead)
	engine.POST("/webhook/n8n/batch", ih.WebhookBatch)
	lh.RegisterRoutes(engine.Group("/leads"))
	return engine
}

func doRequest(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeIngest(t *testing.T, rec *httptest.ResponseRecorder) transport.IngestResponse {
	t.Helper()
	var resp transport.IngestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func TestFirecrawlReportsFailuresPerRecord(t *testing.T) {
	store := &memoryLeads{byKey: map[string]domain.Lead{}}
	engine := newTestEngine(store, pinger{})

	body := `[
		{"source":"mercer-permits","rawAddress":"12 Main St, Princeton, NJ 08540","status":"FINAL"},
		{"source":"","rawAddress":"99 Oak Ave, Trenton, NJ 08608"},
		"not an object",
		{"source":"mercer-permits","rawAddress":"7 Elm Rd, Hopewell, NJ 08525","street":"ignored"}
	]`
	rec := doRequest(engine, http.MethodPost, "/ingest/firecrawl", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeIngest(t, rec)
	if !resp.Success || resp.Count != 2 {
		t.Fatalf("expected 2 successes, got %+v", resp)
	}
	if len(resp.Failures) != 2 || resp.Failures[0].Index != 1 || resp.Failures[1].Index != 2 {
		t.Fatalf("unexpected failures %+v", resp.Failures)
	}
	if resp.Results[1].Index != 3 || resp.Results[1].CanonicalKey != "7elmrd_hopewell_08525" {
		t.Fatalf("expected free-text parse for record 3, got %+v", resp.Results[1])
	}
	for _, lead := range store.byKey {
		if lead.Kind != domain.KindPermit {
			t.Fatalf("firecrawl leads must be permits, got %q", lead.Kind)
		}
	}
}

func TestN8nRequiresStructuredAddress(t *testing.T) {
	store := &memoryLeads{byKey: map[string]domain.Lead{}}
	engine := newTestEngine(store, pinger{})

	body := `[
		{"source":"n8n","rawAddress":"12 Main St","street":"12 Main St","city":"Princeton","zip":"08540"},
		{"source":"n8n","rawAddress":"14 Main St","street":"14 Main St","city":"Princeton"}
	]`
	resp := decodeIngest(t, doRequest(engine, http.MethodPost, "/ingest/n8n", body))
	if resp.Count != 1 || len(resp.Failures) != 1 {
		t.Fatalf("expected one success and one failure, got %+v", resp)
	}
	if resp.Failures[0].Error != transport.ErrStructuredAddressRequired.Error() {
		t.Fatalf("unexpected failure reason %q", resp.Failures[0].Error)
	}
	if lead := store.byKey["12mainst_princeton_08540"]; lead.State != "NJ" {
		t.Fatalf("expected default state, got %q", lead.State)
	}
}

func TestIngestRejectsNonArrayBody(t *testing.T) {
	engine := newTestEngine(&memoryLeads{byKey: map[string]domain.Lead{}}, pinger{})
	rec := doRequest(engine, http.MethodPost, "/ingest/firecrawl", `{"source":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWebhookBatchRejectsEmptyEnvelope(t *testing.T) {
	engine := newTestEngine(&memoryLeads{byKey: map[string]domain.Lead{}}, pinger{})
	for _, body := range []string{`{"leads":[]}`, `{}`} {
		rec := doRequest(engine, http.MethodPost, "/webhook/n8n/batch", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, rec.Code)
		}
	}
}

func TestWebhookLeadCreatesThenUpdates(t *testing.T) {
	store := &memoryLeads{byKey: map[string]domain.Lead{}}
	engine := newTestEngine(store, pinger{})
	body := `{"source":"n8n","rawAddress":"12 Main St","street":"12 Main St","city":"Princeton","zip":"08540"}`

	var first, second transport.WebhookLeadResponse
	rec := doRequest(engine, http.MethodPost, "/webhook/n8n/leads", body)
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	rec = doRequest(engine, http.MethodPost, "/webhook/n8n/leads", body)
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if first.Action != "created" || second.Action != "updated" || first.ID != second.ID {
		t.Fatalf("unexpected responses %+v then %+v", first, second)
	}
}

func TestWebhookLeadValidation(t *testing.T) {
	engine := newTestEngine(&memoryLeads{byKey: map[string]domain.Lead{}}, pinger{})
	rec := doRequest(engine, http.MethodPost, "/webhook/n8n/leads", `{"source":"n8n","rawAddress":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rawAddress") {
		t.Fatalf("expected field detail, got %s", rec.Body.String())
	}
}

func TestHealthReportsDatabaseAndAdmin(t *testing.T) {
	engine := newTestEngine(&memoryLeads{byKey: map[string]domain.Lead{}}, pinger{})
	rec := doRequest(engine, http.MethodGet, "/ingest/health", "")
	var resp transport.IngestHealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || !resp.OK || !resp.DB.OK || !resp.Admin {
		t.Fatalf("unexpected health %d %+v", rec.Code, resp)
	}

	engine = newTestEngine(&memoryLeads{byKey: map[string]domain.Lead{}}, pinger{err: errors.New("down")})
	rec = doRequest(engine, http.MethodGet, "/ingest/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the database is down, got %d", rec.Code)
	}
}

func TestLeadRoutes(t *testing.T) {
	id := uuid.New()
	store := &memoryLeads{byKey: map[string]domain.Lead{
		"k": {ID: id, CanonicalKey: "k", Tags: []string{}, FirstSeen: time.Now()},
	}}
	engine := newTestEngine(store, pinger{})

	if rec := doRequest(engine, http.MethodGet, "/leads/"+id.String(), ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := doRequest(engine, http.MethodGet, "/leads/"+uuid.NewString(), ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := doRequest(engine, http.MethodGet, "/leads/not-a-uuid", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := doRequest(engine, http.MethodPatch, "/leads/"+id.String(), `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty patch, got %d", rec.Code)
	}
	rec := doRequest(engine, http.MethodPatch, "/leads/"+id.String(), `{"notes":"called"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"notes":"called"`) {
		t.Fatalf("unexpected patch response %d %s", rec.Code, rec.Body.String())
	}
	if rec := doRequest(engine, http.MethodGet, "/leads?minScore=11", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out of range minScore, got %d", rec.Code)
	}
}
