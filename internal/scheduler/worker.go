package scheduler

import (
	"context"
	"fmt"

	"permitleads_backend/internal/crawler"
	"permitleads_backend/platform/apperr"
	"permitleads_backend/platform/config"
	"permitleads_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// CrawlRunner is the crawl entry point the worker drives.
type CrawlRunner interface {
	RunAll(ctx context.Context) (crawler.Summary, error)
	RunOne(ctx context.Context, id uuid.UUID) (crawler.Report, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	runner CrawlRunner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner CrawlRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 2
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(runner, log)
	w.server = server
	return w, nil
}

func newWorker(runner CrawlRunner, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:    mux,
		runner: runner,
		log:    log,
	}

	mux.HandleFunc(TaskCrawlAll, w.handleCrawlAll)
	mux.HandleFunc(TaskCrawlSource, w.handleCrawlSource)

	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// Source failures are recorded on the registry, so a crawl-all only fails
// when the registry itself is unreachable.
func (w *Worker) handleCrawlAll(ctx context.Context, _ *asynq.Task) error {
	summary, err := w.runner.RunAll(ctx)
	if err != nil {
		return err
	}
	w.log.Info("crawl completed", "sources", summary.Sources, "ingested", summary.Ingested)
	return nil
}

func (w *Worker) handleCrawlSource(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCrawlSourcePayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	sourceID, err := uuid.Parse(payload.SourceID)
	if err != nil {
		return fmt.Errorf("invalid source id %q: %w", payload.SourceID, asynq.SkipRetry)
	}

	report, err := w.runner.RunOne(ctx, sourceID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return fmt.Errorf("source %s: %w", sourceID, asynq.SkipRetry)
		}
		return err
	}
	if report.Status == crawler.StatusError {
		return fmt.Errorf("crawl %s: %s", report.Slug, report.Error)
	}
	return nil
}
