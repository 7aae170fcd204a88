// Package crawler pulls permit rows from registry sources and feeds them
// through lead ingestion.
package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"permitleads_backend/platform/config"
)

const (
	crawlPath        = "/v1/crawl"
	maxResponseBytes = 16 << 20
)

// ErrNotConfigured is returned when no Firecrawl API key is set.
var ErrNotConfigured = errors.New("firecrawl api key not configured")

// Row is one extracted table row. Values are strings or numbers depending
// on how the portal renders them.
type Row map[string]any

// Firecrawl calls the Firecrawl extraction API.
type Firecrawl struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewFirecrawl(cfg config.CrawlerConfig) *Firecrawl {
	timeout := cfg.GetCrawlSourceTimeout()
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Firecrawl{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.GetFirecrawlURL(), "/"),
		apiKey:  cfg.GetFirecrawlAPIKey(),
	}
}

// Configured reports whether crawls can be attempted.
func (f *Firecrawl) Configured() bool {
	return f.apiKey != ""
}

type extractSelector struct {
	Name     string `json:"name"`
	Selector string `json:"selector"`
	Type     string `json:"type"`
}

type extractSpec struct {
	Mode      string            `json:"mode"`
	Selectors []extractSelector `json:"selectors"`
	Fields    []extractSelector `json:"fields"`
}

type crawlRequest struct {
	URL         string      `json:"url"`
	IncludeHTML bool        `json:"includeHtml"`
	JavaScript  bool        `json:"javascript"`
	Extract     extractSpec `json:"extract"`
}

type crawlResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// permitTableSpec targets the common permit portal table layout.
var permitTableSpec = extractSpec{
	Mode: "list",
	Selectors: []extractSelector{
		{Name: "rows", Selector: "table, .permit-list, .results table", Type: "elements"},
	},
	Fields: []extractSelector{
		{Name: "issueDate", Selector: "td:nth-child(1), .col-date", Type: "text"},
		{Name: "permitNumber", Selector: "td:nth-child(2), .col-permit", Type: "text"},
		{Name: "rawAddress", Selector: "td:nth-child(3), .col-address", Type: "text"},
		{Name: "permitType", Selector: "td:nth-child(4), .col-type", Type: "text"},
		{Name: "status", Selector: "td:nth-child(5), .col-status", Type: "text"},
	},
}

// Extract crawls pageURL and returns the extracted rows. An unsuccessful
// response without data yields no rows and no error.
func (f *Firecrawl) Extract(ctx context.Context, pageURL string) ([]Row, error) {
	if !f.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(crawlRequest{
		URL:         pageURL,
		IncludeHTML: true,
		JavaScript:  true,
		Extract:     permitTableSpec,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+crawlPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firecrawl request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read firecrawl response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("firecrawl api error: %d %s", resp.StatusCode, truncate(string(payload), 200))
	}

	return decodeRows(payload)
}

// decodeRows parses the crawl envelope, repairing malformed JSON once before
// giving up. Extraction output is often truncated or carries trailing commas.
func decodeRows(payload []byte) ([]Row, error) {
	var envelope crawlResponse
	if err := json.Unmarshal(payload, &envelope); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(string(payload))
		if repairErr != nil {
			return nil, fmt.Errorf("decode firecrawl response: %w (repair failed: %v)", err, repairErr)
		}
		if err := json.Unmarshal([]byte(repaired), &envelope); err != nil {
			return nil, fmt.Errorf("decode repaired firecrawl response: %w", err)
		}
	}

	if !envelope.Success || len(envelope.Data) == 0 {
		return nil, nil
	}

	var rows []Row
	if err := json.Unmarshal(envelope.Data, &rows); err != nil {
		// data is not a list of rows
		return nil, nil
	}
	return rows, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
