package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"permitleads_backend/internal/events"
	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/internal/leads/ingest"
	"permitleads_backend/platform/logger"
)

type crawlerConfig struct {
	url string
	key string
}

func (c crawlerConfig) GetFirecrawlURL() string              { return c.url }
func (c crawlerConfig) GetFirecrawlAPIKey() string           { return c.key }
func (c crawlerConfig) GetCrawlSourceTimeout() time.Duration { return 5 * time.Second }
func (c crawlerConfig) GetCrawlParallelism() int             { return 2 }

type fakeStore struct {
	mu      sync.Mutex
	sources []domain.Source
	runs    map[uuid.UUID]string
}

func (s *fakeStore) Active(context.Context) ([]domain.Source, error) {
	return s.sources, nil
}

func (s *fakeStore) Source(_ context.Context, id uuid.UUID) (domain.Source, error) {
	for _, src := range s.sources {
		if src.ID == id {
			return src, nil
		}
	}
	return domain.Source{}, errors.New("not found")
}

func (s *fakeStore) RecordRun(_ context.Context, id uuid.UUID, _ time.Time, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[id] = status
	return nil
}

type fakeFetcher struct {
	rows map[string][]Row
	errs map[string]error
}

func (f fakeFetcher) Extract(_ context.Context, pageURL string) ([]Row, error) {
	if err := f.errs[pageURL]; err != nil {
		return nil, err
	}
	return f.rows[pageURL], nil
}

type fakeIngester struct {
	mu      sync.Mutex
	batches []ingest.Batch
}

func (f *fakeIngester) Ingest(_ context.Context, batch ingest.Batch) ingest.BatchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	var result ingest.BatchResult
	for i, rec := range batch.Records {
		if rec.Reject != nil {
			result.Failures = append(result.Failures, ingest.RecordFailure{
				Index:      i,
				Source:     rec.Input.Source,
				RawAddress: rec.Input.RawAddress,
				Error:      rec.Reject.Error(),
			})
			continue
		}
		result.Count++
	}
	return result
}

func strPtr(s string) *string { return &s }

func TestDecodeRowsRepairsMalformedJSON(t *testing.T) {
	payload := `{"success": true, "data": [{"rawAddress": "12 Main St, Princeton, NJ 08540", "status": "FINAL",},]}`
	rows, err := decodeRows([]byte(payload))
	if err != nil {
		t.Fatalf("decodeRows returned unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0]["status"] != "FINAL" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestDecodeRowsWithoutData(t *testing.T) {
	for _, payload := range []string{
		`{"success": false, "error": "blocked"}`,
		`{"success": true}`,
		`{"success": true, "data": {"markdown": "# page"}}`,
	} {
		rows, err := decodeRows([]byte(payload))
		if err != nil || rows != nil {
			t.Fatalf("expected no rows for %s, got %+v, %v", payload, rows, err)
		}
	}
}

func TestToRawInputMapsRow(t *testing.T) {
	src := domain.Source{Slug: "hopewell-permits", Type: "permit", County: strPtr("Mercer"), Town: strPtr("Hopewell")}
	row := Row{
		"rawAddress":   " 7 Elm Rd, Hopewell, NJ 08525 ",
		"permitNumber": 20240117.0,
		"issueDate":    "03/15/2024",
		"estValue":     "$1,250,000",
		"lotAcres":     2.5,
		"yearBuilt":    "1987",
		"status":       "",
	}

	input, err := ToRawInput(src, row)
	if err != nil {
		t.Fatalf("ToRawInput returned unexpected error: %v", err)
	}
	if input.Source != "hopewell-permits" || input.Kind != domain.KindPermit {
		t.Fatalf("unexpected source/kind %q %q", input.Source, input.Kind)
	}
	if input.RawAddress != "7 Elm Rd, Hopewell, NJ 08525" {
		t.Fatalf("unexpected raw address %q", input.RawAddress)
	}
	if input.PermitNumber == nil || *input.PermitNumber != "20240117" {
		t.Fatalf("unexpected permit number %v", input.PermitNumber)
	}
	if input.IssueDate == nil || input.IssueDate.Format("2006-01-02") != "2024-03-15" {
		t.Fatalf("unexpected issue date %v", input.IssueDate)
	}
	if input.EstValue == nil || *input.EstValue != 1250000 {
		t.Fatalf("unexpected est value %v", input.EstValue)
	}
	if input.LotAcres == nil || *input.LotAcres != 2.5 {
		t.Fatalf("unexpected lot acres %v", input.LotAcres)
	}
	if input.YearBuilt == nil || *input.YearBuilt != 1987 {
		t.Fatalf("unexpected year built %v", input.YearBuilt)
	}
	if input.Status != nil {
		t.Fatalf("blank status should be nil, got %q", *input.Status)
	}
	if input.County == nil || *input.County != "Mercer" || input.Town == nil || *input.Town != "Hopewell" {
		t.Fatalf("expected county and town from the source")
	}
}

func TestToRawInputRejectsShortAddress(t *testing.T) {
	for _, row := range []Row{{}, {"rawAddress": "ab"}, {"rawAddress": 12.0}} {
		input, err := ToRawInput(domain.Source{Slug: "s", Type: "permit"}, row)
		if !errors.Is(err, ErrMissingAddress) {
			t.Fatalf("expected ErrMissingAddress for row %+v, got %v", row, err)
		}
		if input.Source != "s" {
			t.Fatalf("rejected row must keep its source, got %q", input.Source)
		}
	}
}

func TestRunAllRecordsEveryOutcome(t *testing.T) {
	okSrc := domain.Source{ID: uuid.New(), Slug: "ok", URL: "https://ok.example", Type: "permit"}
	emptySrc := domain.Source{ID: uuid.New(), Slug: "empty", URL: "https://empty.example", Type: "permit"}
	badSrc := domain.Source{ID: uuid.New(), Slug: "bad", URL: "https://bad.example", Type: "permit"}

	store := &fakeStore{sources: []domain.Source{okSrc, emptySrc, badSrc}, runs: map[uuid.UUID]string{}}
	fetcher := fakeFetcher{
		rows: map[string][]Row{
			okSrc.URL: {
				{"rawAddress": "12 Main St, Princeton, NJ 08540"},
				{"rawAddress": "x"},
				{"rawAddress": "14 Main St, Princeton, NJ 08540"},
			},
		},
		errs: map[string]error{badSrc.URL: errors.New("firecrawl api error: 502")},
	}
	ingester := &fakeIngester{}
	bus := events.NewInMemoryBus(logger.Discard())
	var mu sync.Mutex
	var crawled []string
	bus.Subscribe(events.SourceCrawled{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		crawled = append(crawled, e.(events.SourceCrawled).Slug)
		return nil
	}))

	runner := NewRunner(store, fetcher, ingester, bus, logger.Discard(), RunnerConfig{Parallelism: 2})
	summary, err := runner.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll returned unexpected error: %v", err)
	}
	bus.Wait()

	if summary.Sources != 3 || summary.Ingested != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Reports[0].Status != StatusOK || summary.Reports[1].Status != StatusEmpty || summary.Reports[2].Status != StatusError {
		t.Fatalf("unexpected report order or statuses %+v", summary.Reports)
	}

	if got := store.runs[okSrc.ID]; got != "ok: 3 rows, 2 ingested, 1 failed" {
		t.Fatalf("unexpected ok status %q", got)
	}
	if got := store.runs[emptySrc.ID]; got != StatusEmpty {
		t.Fatalf("unexpected empty status %q", got)
	}
	if got := store.runs[badSrc.ID]; !strings.HasPrefix(got, "error: firecrawl api error") {
		t.Fatalf("unexpected error status %q", got)
	}

	if len(ingester.batches) != 1 {
		t.Fatalf("expected one batch, got %d", len(ingester.batches))
	}
	batch := ingester.batches[0]
	if batch.Channel != Channel || len(batch.Records) != 3 || batch.Records[0].Input.Source != "ok" {
		t.Fatalf("unexpected batch %+v", batch)
	}
	short := batch.Records[1]
	if !errors.Is(short.Reject, ErrMissingAddress) || short.Input.RawAddress != "x" || short.Input.Source != "ok" {
		t.Fatalf("short address row must be reported as a failure, got %+v", short)
	}
	if summary.Reports[0].Failed != 1 {
		t.Fatalf("expected one failed row, got %+v", summary.Reports[0])
	}
	var raw []map[string]any
	if err := json.Unmarshal(batch.Raw, &raw); err != nil || len(raw) != 3 {
		t.Fatalf("expected raw rows to be archived, got %s (%v)", batch.Raw, err)
	}
	if len(crawled) != 3 {
		t.Fatalf("expected an event per source, got %v", crawled)
	}
}

func TestRunOneUnknownSource(t *testing.T) {
	store := &fakeStore{runs: map[uuid.UUID]string{}}
	runner := NewRunner(store, fakeFetcher{}, &fakeIngester{}, nil, logger.Discard(), RunnerConfig{})
	if _, err := runner.RunOne(context.Background(), uuid.New()); err == nil {
		t.Fatalf("expected error for unknown source")
	}
}

func TestFirecrawlExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/crawl" || r.Header.Get("Authorization") != "Bearer fc-key" {
			t.Errorf("unexpected request %s %s", r.URL.Path, r.Header.Get("Authorization"))
		}
		var body crawlRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URL != "https://portal.example/permits" {
			t.Errorf("unexpected body %+v (%v)", body, err)
		}
		if body.Extract.Mode != "list" {
			t.Errorf("expected list extraction, got %q", body.Extract.Mode)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":[{"rawAddress":"12 Main St"}]}`))
	}))
	defer srv.Close()

	fc := NewFirecrawl(crawlerConfig{url: srv.URL + "/", key: "fc-key"})
	rows, err := fc.Extract(context.Background(), "https://portal.example/permits")
	if err != nil {
		t.Fatalf("Extract returned unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0]["rawAddress"] != "12 Main St" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestFirecrawlErrors(t *testing.T) {
	if _, err := NewFirecrawl(crawlerConfig{url: "http://unused"}).Extract(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"credits exhausted"}`))
	}))
	defer srv.Close()

	_, err := NewFirecrawl(crawlerConfig{url: srv.URL, key: "k"}).Extract(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "402") {
		t.Fatalf("expected upstream status in error, got %v", err)
	}
}
