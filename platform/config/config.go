// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AdminConfig provides the shared secrets accepted on ingestion routes.
type AdminConfig interface {
	GetAdminTokens() []string
	IsAdminAuthConfigured() bool
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// GeocodeConfig provides settings for the Nominatim enrichment client.
type GeocodeConfig interface {
	GetGeocodeEnabled() bool
	GetNominatimURL() string
	GetGeocodeUserAgent() string
	GetGeocodeCountryCodes() string
	GetGeocodeMinInterval() time.Duration
	GetGeocodeTimeout() time.Duration
	GetGeocodeCacheTTL() time.Duration
}

// SchedulerConfig provides settings for the asynq crawl queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetCrawlCron() string
}

// CrawlerConfig provides settings for the Firecrawl collaborator.
type CrawlerConfig interface {
	GetFirecrawlURL() string
	GetFirecrawlAPIKey() string
	GetCrawlSourceTimeout() time.Duration
	GetCrawlParallelism() int
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketIngestArchive() string
	IsMinIOEnabled() bool
}

// JurisdictionConfig provides the location of the jurisdiction rules file.
type JurisdictionConfig interface {
	GetJurisdictionFile() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	HTTPAddr                 string
	DatabaseURL              string
	JWTAccessSecret          string
	AdminTokens              []string
	CORSAllowAll             bool
	CORSOrigins              []string
	CORSAllowCreds           bool
	GeocodeEnabled           bool
	NominatimURL             string
	GeocodeUserAgent         string
	GeocodeCountryCodes      string
	GeocodeMinInterval       time.Duration
	GeocodeTimeout           time.Duration
	GeocodeCacheTTL          time.Duration
	RedisURL                 string
	RedisTLSInsecure         bool
	AsynqQueueName           string
	AsynqConcurrency         int
	CrawlCron                string
	FirecrawlURL             string
	FirecrawlAPIKey          string
	CrawlSourceTimeout       time.Duration
	CrawlParallelism         int
	MinIOEndpoint            string
	MinIOAccessKey           string
	MinIOSecretKey           string
	MinIOUseSSL              bool
	MinioBucketIngestArchive string
	JurisdictionFile         string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AdminConfig implementation
func (c *Config) GetAdminTokens() []string    { return c.AdminTokens }
func (c *Config) IsAdminAuthConfigured() bool { return len(c.AdminTokens) > 0 || c.JWTAccessSecret != "" }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// GeocodeConfig implementation
func (c *Config) GetGeocodeEnabled() bool              { return c.GeocodeEnabled }
func (c *Config) GetNominatimURL() string              { return c.NominatimURL }
func (c *Config) GetGeocodeUserAgent() string          { return c.GeocodeUserAgent }
func (c *Config) GetGeocodeCountryCodes() string       { return c.GeocodeCountryCodes }
func (c *Config) GetGeocodeMinInterval() time.Duration { return c.GeocodeMinInterval }
func (c *Config) GetGeocodeTimeout() time.Duration     { return c.GeocodeTimeout }
func (c *Config) GetGeocodeCacheTTL() time.Duration    { return c.GeocodeCacheTTL }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) GetCrawlCron() string      { return c.CrawlCron }

// CrawlerConfig implementation
func (c *Config) GetFirecrawlURL() string              { return c.FirecrawlURL }
func (c *Config) GetFirecrawlAPIKey() string           { return c.FirecrawlAPIKey }
func (c *Config) GetCrawlSourceTimeout() time.Duration { return c.CrawlSourceTimeout }
func (c *Config) GetCrawlParallelism() int             { return c.CrawlParallelism }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string  { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool      { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketIngestArchive() string {
	return c.MinioBucketIngestArchive
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// JurisdictionConfig implementation
func (c *Config) GetJurisdictionFile() string { return c.JurisdictionFile }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		JWTAccessSecret:          getEnv("JWT_ACCESS_SECRET", ""),
		AdminTokens:              adminTokens(),
		CORSAllowAll:             corsAllowAll,
		CORSOrigins:              corsOrigins,
		CORSAllowCreds:           strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),
		GeocodeEnabled:           strings.EqualFold(getEnv("GEOCODE_ENABLED", "true"), "true"),
		NominatimURL:             getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org/search"),
		GeocodeUserAgent:         getEnv("GEOCODE_USER_AGENT", "PermitLeads/1.0 (ops@permitleads.local)"),
		GeocodeCountryCodes:      getEnv("GEOCODE_COUNTRY_CODES", "us"),
		GeocodeMinInterval:       mustDuration(getEnv("GEOCODE_MIN_INTERVAL", "1s")),
		GeocodeTimeout:           mustDuration(getEnv("GEOCODE_TIMEOUT", "5s")),
		GeocodeCacheTTL:          mustDuration(getEnv("GEOCODE_CACHE_TTL", "720h")),
		RedisURL:                 getEnv("REDIS_URL", ""),
		RedisTLSInsecure:         strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:           getEnv("ASYNQ_QUEUE", "crawl"),
		AsynqConcurrency:         mustInt(getEnv("ASYNQ_CONCURRENCY", "4")),
		CrawlCron:                getEnv("CRAWL_CRON", "0 */6 * * *"),
		FirecrawlURL:             getEnv("FIRECRAWL_URL", "https://api.firecrawl.dev"),
		FirecrawlAPIKey:          getEnv("FIRECRAWL_API_KEY", ""),
		CrawlSourceTimeout:       mustDuration(getEnv("CRAWL_SOURCE_TIMEOUT", "2m")),
		CrawlParallelism:         mustInt(getEnv("CRAWL_PARALLELISM", "3")),
		MinIOEndpoint:            getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:           getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:           getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:              strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketIngestArchive: getEnv("MINIO_BUCKET_INGEST_ARCHIVE", "ingest-archive"),
		JurisdictionFile:         getEnv("JURISDICTION_FILE", "jurisdiction.yaml"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.GeocodeMinInterval < 0 {
		return nil, fmt.Errorf("GEOCODE_MIN_INTERVAL must not be negative")
	}

	return cfg, nil
}

// adminTokens collects every configured admin secret. Rotations keep the
// previous value under ADMIN_TOKEN_NEW or ADMIN_TOKEN_V2 until clients move over.
func adminTokens() []string {
	tokens := make([]string, 0, 3)
	for _, key := range []string{"ADMIN_TOKEN", "ADMIN_TOKEN_NEW", "ADMIN_TOKEN_V2"} {
		if value := strings.TrimSpace(getEnv(key, "")); value != "" {
			tokens = append(tokens, value)
		}
	}
	return tokens
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
