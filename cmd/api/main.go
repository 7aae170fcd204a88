package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"permitleads_backend/internal/archive"
	"permitleads_backend/internal/events"
	"permitleads_backend/internal/exports"
	apphttp "permitleads_backend/internal/http"
	"permitleads_backend/internal/http/router"
	"permitleads_backend/internal/leads"
	"permitleads_backend/internal/maps"
	"permitleads_backend/internal/sources"
	"permitleads_backend/migrations"
	"permitleads_backend/platform/config"
	"permitleads_backend/platform/db"
	"permitleads_backend/platform/httpkit"
	"permitleads_backend/platform/logger"
	"permitleads_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jurisdiction, err := config.LoadJurisdiction(cfg.GetJurisdictionFile())
	if err != nil {
		log.Error("failed to load jurisdiction rules", "error", err)
		panic("failed to load jurisdiction rules: " + err.Error())
	}
	log.Info("jurisdiction rules loaded", "states", jurisdiction.States, "defaultState", jurisdiction.DefaultState)

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Raw batch archive (MinIO); ingestion works without it
	archive.Setup(ctx, cfg, eventBus, log)

	geocoder, closeCache := maps.Setup(cfg, log)
	if closeCache != nil {
		defer closeCache()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

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
	exportsModule := exports.NewModule(leadsModule.Repository(), val, log)

	modules := []apphttp.Module{
		leadsModule,
		sourcesModule,
		exportsModule,
	}
	if geocoder != nil {
		modules = append(modules, maps.NewModule(geocoder, val))
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	guard := httpkit.NewAdminGuard(cfg, log)
	if !guard.Configured() {
		log.Warn("no admin token or JWT secret configured; ingestion endpoints will reject every request")
	}

	app := &apphttp.App{
		Config:     cfg,
		Logger:     log,
		Health:     db.NewPoolAdapter(pool),
		EventBus:   eventBus,
		AdminGuard: guard,
		Modules:    modules,
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		// let in-flight archive writes finish
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
