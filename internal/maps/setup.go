package maps

import (
	"permitleads_backend/internal/scheduler"
	"permitleads_backend/platform/config"
	"permitleads_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// SetupConfig is what the binaries need to build a geocoder.
type SetupConfig interface {
	config.GeocodeConfig
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// Setup returns nil when geocoding is disabled. The Redis cache shares the
// scheduler's Redis and is skipped when none is configured. closeCache releases
// the cache client and may be nil.
func Setup(cfg SetupConfig, log *logger.Logger) (geocoder *Geocoder, closeCache func()) {
	if !cfg.GetGeocodeEnabled() {
		log.Warn("geocoding disabled; leads are stored without enrichment")
		return nil, nil
	}

	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; geocode cache disabled")
		return NewGeocoder(cfg, nil, log), nil
	}

	opt, err := scheduler.RedisOptions(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("invalid REDIS_URL; geocode cache disabled", "error", err)
		return NewGeocoder(cfg, nil, log), nil
	}

	client := redis.NewClient(opt)
	return NewGeocoder(cfg, NewRedisCache(client), log), func() {
		_ = client.Close()
	}
}
