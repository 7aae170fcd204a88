package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"permitleads_backend/internal/events"
	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/internal/leads/ingest"
	"permitleads_backend/platform/logger"
)

// Channel names the ingestion channel crawler batches are recorded under.
const Channel = "crawler"

const (
	StatusOK    = "ok"
	StatusEmpty = "empty"
	StatusError = "error"
)

// SourceStore is the registry access the runner needs.
type SourceStore interface {
	Active(ctx context.Context) ([]domain.Source, error)
	Source(ctx context.Context, id uuid.UUID) (domain.Source, error)
	RecordRun(ctx context.Context, id uuid.UUID, at time.Time, status string) error
}

// Fetcher extracts rows from a source page.
type Fetcher interface {
	Extract(ctx context.Context, pageURL string) ([]Row, error)
}

// Ingester stores a batch of records.
type Ingester interface {
	Ingest(ctx context.Context, batch ingest.Batch) ingest.BatchResult
}

// Report is the outcome of crawling one source.
type Report struct {
	SourceID uuid.UUID `json:"sourceId"`
	Slug     string    `json:"slug"`
	Rows     int       `json:"rows"`
	Ingested int       `json:"ingested"`
	Failed   int       `json:"failed"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
}

// Summary aggregates a crawl of every active source.
type Summary struct {
	Sources  int      `json:"sources"`
	Ingested int      `json:"ingested"`
	Reports  []Report `json:"reports"`
}

type RunnerConfig struct {
	SourceTimeout time.Duration
	Parallelism   int
}

// Runner crawls registry sources. One failing source never stops the others.
type Runner struct {
	sources  SourceStore
	fetcher  Fetcher
	ingester Ingester
	bus      events.Bus
	log      *logger.Logger
	cfg      RunnerConfig
	now      func() time.Time
}

func NewRunner(sources SourceStore, fetcher Fetcher, ingester Ingester, bus events.Bus, log *logger.Logger, cfg RunnerConfig) *Runner {
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = 2 * time.Minute
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	return &Runner{
		sources:  sources,
		fetcher:  fetcher,
		ingester: ingester,
		bus:      bus,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
}

// RunAll crawls every active source with bounded parallelism.
func (r *Runner) RunAll(ctx context.Context) (Summary, error) {
	sources, err := r.sources.Active(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list active sources: %w", err)
	}

	reports := make([]Report, len(sources))
	var g errgroup.Group
	g.SetLimit(r.cfg.Parallelism)
	for i, src := range sources {
		g.Go(func() error {
			reports[i] = r.RunSource(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{Sources: len(sources), Reports: reports}
	for _, rep := range reports {
		summary.Ingested += rep.Ingested
	}
	return summary, ctx.Err()
}

// RunOne crawls the source with the given ID.
func (r *Runner) RunOne(ctx context.Context, id uuid.UUID) (Report, error) {
	src, err := r.sources.Source(ctx, id)
	if err != nil {
		return Report{}, err
	}
	return r.RunSource(ctx, src), nil
}

// RunSource crawls src under the per-source timeout, ingests what it finds
// and records the outcome on the registry entry.
func (r *Runner) RunSource(ctx context.Context, src domain.Source) Report {
	report := Report{SourceID: src.ID, Slug: src.Slug}

	crawlCtx, cancel := context.WithTimeout(ctx, r.cfg.SourceTimeout)
	rows, err := r.fetcher.Extract(crawlCtx, src.URL)
	cancel()

	switch {
	case err != nil:
		report.Status = StatusError
		report.Error = err.Error()
	case len(rows) == 0:
		report.Status = StatusEmpty
	default:
		r.ingestRows(ctx, src, rows, &report)
	}

	r.finish(ctx, src, report)
	return report
}

func (r *Runner) ingestRows(ctx context.Context, src domain.Source, rows []Row, report *Report) {
	report.Rows = len(rows)

	records := make([]ingest.Record, len(rows))
	for i, row := range rows {
		input, err := ToRawInput(src, row)
		records[i] = ingest.Record{Input: input, Reject: err}
	}

	// rows came from json.Unmarshal, so re-encoding cannot fail
	raw, _ := json.Marshal(rows)

	result := r.ingester.Ingest(ctx, ingest.Batch{
		Channel: Channel,
		Records: records,
		Raw:     raw,
	})
	report.Ingested = result.Count
	report.Failed = len(result.Failures)
	report.Status = StatusOK
}

func (r *Runner) finish(ctx context.Context, src domain.Source, report Report) {
	status := statusLine(report)
	if err := r.sources.RecordRun(context.WithoutCancel(ctx), src.ID, r.now().UTC(), status); err != nil {
		r.log.Error("failed to record crawl run", "source", src.Slug, "error", err)
	}

	r.log.CrawlSourceFinished(src.Slug, report.Rows, report.Ingested, report.Status)
	if r.bus != nil {
		r.bus.Publish(ctx, events.SourceCrawled{
			BaseEvent: events.NewBaseEvent(),
			SourceID:  src.ID,
			Slug:      src.Slug,
			Rows:      report.Rows,
			Ingested:  report.Ingested,
			Status:    report.Status,
		})
	}
}

// statusLine is the human readable last_status stored on the source.
func statusLine(report Report) string {
	switch report.Status {
	case StatusError:
		return truncate(StatusError+": "+report.Error, 500)
	case StatusEmpty:
		return StatusEmpty
	default:
		return fmt.Sprintf("%s: %d rows, %d ingested, %d failed", StatusOK, report.Rows, report.Ingested, report.Failed)
	}
}
