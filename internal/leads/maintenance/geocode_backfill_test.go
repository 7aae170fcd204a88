package maintenance

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/internal/leads/ingest"
	"permitleads_backend/internal/leads/repository"
	"permitleads_backend/platform/config"
	"permitleads_backend/platform/logger"

	"github.com/google/uuid"
)

type memoryCoordinates struct {
	leads   map[uuid.UUID]*domain.Lead
	queries int
}

func (m *memoryCoordinates) ListMissingCoordinates(_ context.Context, params repository.MissingCoordinatesParams) ([]domain.Lead, error) {
	m.queries++
	var out []domain.Lead
	for _, lead := range m.leads {
		if lead.HasCoordinates() || lead.City == params.UnknownCity {
			continue
		}
		if bytes.Compare(lead.ID[:], params.After[:]) <= 0 {
			continue
		}
		out = append(out, *lead)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	if len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (m *memoryCoordinates) UpdateCoordinates(_ context.Context, id uuid.UUID, lat, lon float64) error {
	lead, ok := m.leads[id]
	if !ok {
		return repository.ErrNotFound
	}
	lead.Lat, lead.Lon = &lat, &lon
	return nil
}

type scriptedGeocoder struct {
	calls []string
}

func (g *scriptedGeocoder) Geocode(_ context.Context, query string) (*domain.Coordinates, error) {
	g.calls = append(g.calls, query)
	switch {
	case strings.HasPrefix(query, "1 Nowhere"):
		return nil, nil
	case strings.HasPrefix(query, "9 Broken"):
		return nil, errors.New("nominatim upstream error: 503")
	default:
		return &domain.Coordinates{Lat: 40.35, Lon: -74.66}, nil
	}
}

func addLead(m *memoryCoordinates, street, city, zip string) uuid.UUID {
	id := uuid.New()
	m.leads[id] = &domain.Lead{ID: id, Street: street, City: city, State: "NJ", Zip: zip}
	return id
}

func TestGeocodeBackfillPagesThroughMissingLeads(t *testing.T) {
	store := &memoryCoordinates{leads: map[uuid.UUID]*domain.Lead{}}
	ok1 := addLead(store, "12 Main St", "Princeton", "08540")
	ok2 := addLead(store, "14 Main St", "Princeton", "00000")
	miss := addLead(store, "1 Nowhere Ln", "Princeton", "08540")
	broken := addLead(store, "9 Broken Rd", "Trenton", "08608")
	addLead(store, "5 Any St", "Unknown", "00000")

	geocoder := &scriptedGeocoder{}
	normalizer := ingest.NewJurisdictionNormalizer(config.DefaultJurisdiction())
	backfill := NewGeocodeBackfill(store, geocoder, normalizer, 2, logger.Discard())

	result, err := backfill.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned unexpected error: %v", err)
	}

	if result.Scanned != 4 || result.Updated != 2 || result.NoMatch != 1 || result.Failed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if !store.leads[ok1].HasCoordinates() || !store.leads[ok2].HasCoordinates() {
		t.Fatalf("expected matched leads to be updated")
	}
	if store.leads[miss].HasCoordinates() || store.leads[broken].HasCoordinates() {
		t.Fatalf("unmatched leads must stay without coordinates")
	}
	// two pages of two plus the empty page that ends the run
	if store.queries != 3 {
		t.Fatalf("expected 3 page queries, got %d", store.queries)
	}
	for _, q := range geocoder.calls {
		if strings.Contains(q, "00000") {
			t.Fatalf("placeholder zip leaked into query %q", q)
		}
	}
}

func TestGeocodeBackfillStopsOnCancel(t *testing.T) {
	store := &memoryCoordinates{leads: map[uuid.UUID]*domain.Lead{}}
	addLead(store, "12 Main St", "Princeton", "08540")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backfill := NewGeocodeBackfill(store, &scriptedGeocoder{}, ingest.NewJurisdictionNormalizer(config.DefaultJurisdiction()), 10, logger.Discard())
	if _, err := backfill.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
