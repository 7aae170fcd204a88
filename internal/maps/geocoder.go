// Package maps resolves addresses to coordinates through Nominatim.
package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/internal/leads/ports"
	"permitleads_backend/platform/config"
	"permitleads_backend/platform/logger"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 5 * time.Second
	cacheMiss      = ""
)

// Geocoder looks up one coordinate pair per query. Calls are spaced by the
// configured minimum interval across all callers, which keeps the public
// Nominatim usage policy.
type Geocoder struct {
	client    *http.Client
	endpoint  string
	userAgent string
	countries string
	timeout   time.Duration
	cacheTTL  time.Duration
	limiter   *rate.Limiter
	cache     Cache
	log       *logger.Logger
}

// NewGeocoder builds the client. cache may be nil.
func NewGeocoder(cfg config.GeocodeConfig, cache Cache, log *logger.Logger) *Geocoder {
	timeout := cfg.GetGeocodeTimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if interval := cfg.GetGeocodeMinInterval(); interval > 0 {
		limit = rate.Every(interval)
	}

	return &Geocoder{
		client:    &http.Client{Timeout: timeout},
		endpoint:  cfg.GetNominatimURL(),
		userAgent: cfg.GetGeocodeUserAgent(),
		countries: cfg.GetGeocodeCountryCodes(),
		timeout:   timeout,
		cacheTTL:  cfg.GetGeocodeCacheTTL(),
		limiter:   rate.NewLimiter(limit, 1),
		cache:     cache,
		log:       log,
	}
}

// Geocode returns nil without error when the query has no match.
func (g *Geocoder) Geocode(ctx context.Context, query string) (*domain.Coordinates, error) {
	key := cacheKey(query)
	if key == "" {
		return nil, nil
	}

	if coords, ok := g.cached(ctx, key); ok {
		return coords, nil
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	coords, err := g.search(callCtx, query)
	if err != nil {
		return nil, err
	}

	g.store(ctx, key, coords)
	return coords, nil
}

func (g *Geocoder) search(ctx context.Context, query string) (*domain.Coordinates, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	params.Add("limit", "1")
	if g.countries != "" {
		params.Add("countrycodes", g.countries)
	}

	reqURL := fmt.Sprintf("%s?%s", g.endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim upstream error: %d", resp.StatusCode)
	}

	var results []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode nominatim payload: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	return parseCoordinates(results[0].Lat, results[0].Lon)
}

func (g *Geocoder) cached(ctx context.Context, key string) (*domain.Coordinates, bool) {
	if g.cache == nil {
		return nil, false
	}
	value, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		g.log.Warn("geocode cache read failed", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if value == cacheMiss {
		return nil, true
	}

	lat, lon, found := strings.Cut(value, ",")
	if !found {
		return nil, false
	}
	coords, err := parseCoordinates(lat, lon)
	if err != nil {
		return nil, false
	}
	return coords, true
}

func (g *Geocoder) store(ctx context.Context, key string, coords *domain.Coordinates) {
	if g.cache == nil {
		return
	}
	value := cacheMiss
	if coords != nil {
		value = strconv.FormatFloat(coords.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(coords.Lon, 'f', -1, 64)
	}
	if err := g.cache.Set(ctx, key, value, g.cacheTTL); err != nil {
		g.log.Warn("geocode cache write failed", "error", err)
	}
}

func parseCoordinates(rawLat, rawLon string) (*domain.Coordinates, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(rawLat), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q", rawLat)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(rawLon), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q", rawLon)
	}
	return &domain.Coordinates{Lat: lat, Lon: lon}, nil
}

func cacheKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

var _ ports.Geocoder = (*Geocoder)(nil)
