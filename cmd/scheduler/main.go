package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"permitleads_backend/internal/archive"
	"permitleads_backend/internal/crawler"
	"permitleads_backend/internal/events"
	"permitleads_backend/internal/leads"
	"permitleads_backend/internal/maps"
	"permitleads_backend/internal/scheduler"
	"permitleads_backend/internal/sources"
	"permitleads_backend/platform/config"
	"permitleads_backend/platform/db"
	"permitleads_backend/platform/logger"
	"permitleads_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "cron", cfg.GetCrawlCron())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jurisdiction, err := config.LoadJurisdiction(cfg.GetJurisdictionFile())
	if err != nil {
		log.Error("failed to load jurisdiction rules", "error", err)
		panic("failed to load jurisdiction rules: " + err.Error())
	}

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	archive.Setup(ctx, cfg, eventBus, log)

	geocoder, closeCache := maps.Setup(cfg, log)
	if closeCache != nil {
		defer closeCache()
	}

	val := validator.New()

	// Worker-side ingestion wiring (no HTTP handlers required).
	deps := leads.Dependencies{
		DB:           pool,
		Health:       db.NewPoolAdapter(pool),
		EventBus:     eventBus,
		Validator:    val,
		Jurisdiction: jurisdiction,
		Logger:       log,
	}
	if geocoder != nil {
		deps.Geocoder = geocoder
	}
	leadsModule := leads.NewModule(deps)
	sourcesModule := sources.NewModule(pool, val, log)

	firecrawl := crawler.NewFirecrawl(cfg)
	if !firecrawl.Configured() {
		log.Warn("FIRECRAWL_API_KEY not configured; every crawl will be recorded as an error")
	}
	runner := crawler.NewRunner(sourcesModule.Service(), firecrawl, leadsModule.IngestService(), eventBus, log, crawler.RunnerConfig{
		SourceTimeout: cfg.GetCrawlSourceTimeout(),
		Parallelism:   cfg.GetCrawlParallelism(),
	})

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize crawl scheduler", "error", err)
		panic("failed to initialize crawl scheduler: " + err.Error())
	}

	worker, err := scheduler.NewWorker(cfg, runner, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		periodic.Run(ctx)
	}()

	worker.Run(ctx)
	wg.Wait()
	eventBus.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
