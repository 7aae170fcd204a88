package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"permitleads_backend/internal/leads/ingest"
	"permitleads_backend/internal/leads/maintenance"
	"permitleads_backend/internal/leads/repository"
	"permitleads_backend/internal/maps"
	"permitleads_backend/platform/config"
	"permitleads_backend/platform/db"
	"permitleads_backend/platform/logger"
)

func main() {
	batchSize := flag.Int("batch", 25, "leads fetched per page")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting lead geocode backfill")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jurisdiction, err := config.LoadJurisdiction(cfg.GetJurisdictionFile())
	if err != nil {
		log.Error("failed to load jurisdiction rules", "error", err)
		panic("failed to load jurisdiction rules: " + err.Error())
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	geocoder, closeCache := maps.Setup(cfg, log)
	if closeCache != nil {
		defer closeCache()
	}
	if geocoder == nil {
		log.Info("geocoding disabled, nothing to do")
		return
	}

	backfill := maintenance.NewGeocodeBackfill(
		repository.New(pool),
		geocoder,
		ingest.NewJurisdictionNormalizer(jurisdiction),
		*batchSize,
		log,
	)

	result, err := backfill.Run(ctx)
	log.Info("geocode backfill finished",
		"scanned", result.Scanned,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"noMatch", result.NoMatch,
		"failed", result.Failed,
	)
	if err != nil {
		log.Error("geocode backfill stopped early", "error", err)
		os.Exit(1)
	}
}
