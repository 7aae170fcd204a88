// Package maintenance holds batch jobs that repair stored leads.
package maintenance

import (
	"context"
	"errors"

	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/internal/leads/ports"
	"permitleads_backend/internal/leads/repository"
	"permitleads_backend/platform/logger"

	"github.com/google/uuid"
)

const defaultBackfillBatch = 50

// CoordinateStore is the lead access the geocode backfill needs.
type CoordinateStore interface {
	ListMissingCoordinates(ctx context.Context, params repository.MissingCoordinatesParams) ([]domain.Lead, error)
	UpdateCoordinates(ctx context.Context, id uuid.UUID, lat, lon float64) error
}

// QueryBuilder turns a stored lead into a geocode query. ok is false for
// placeholder addresses.
type QueryBuilder interface {
	StoredGeocodeQuery(lead domain.Lead) (string, bool)
	UnknownCity() string
}

type GeocodeBackfill struct {
	store     CoordinateStore
	geocoder  ports.Geocoder
	queries   QueryBuilder
	batchSize int
	log       *logger.Logger
}

type GeocodeBackfillResult struct {
	Scanned int
	Updated int
	Skipped int
	NoMatch int
	Failed  int
}

func NewGeocodeBackfill(store CoordinateStore, geocoder ports.Geocoder, queries QueryBuilder, batchSize int, log *logger.Logger) *GeocodeBackfill {
	if batchSize < 1 {
		batchSize = defaultBackfillBatch
	}
	return &GeocodeBackfill{
		store:     store,
		geocoder:  geocoder,
		queries:   queries,
		batchSize: batchSize,
		log:       log,
	}
}

// Run pages through every lead without coordinates once. Leads that fail or
// have no match are left for a later run; paging by id guarantees they are
// not retried within this one. Spacing between lookups is the geocoder's.
func (b *GeocodeBackfill) Run(ctx context.Context) (GeocodeBackfillResult, error) {
	var result GeocodeBackfillResult
	after := uuid.Nil

	for {
		leads, err := b.store.ListMissingCoordinates(ctx, repository.MissingCoordinatesParams{
			After:       after,
			Limit:       b.batchSize,
			UnknownCity: b.queries.UnknownCity(),
		})
		if err != nil {
			return result, err
		}
		if len(leads) == 0 {
			return result, nil
		}

		for _, lead := range leads {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			result.Scanned++
			b.geocodeLead(ctx, lead, &result)
		}
		after = leads[len(leads)-1].ID
	}
}

func (b *GeocodeBackfill) geocodeLead(ctx context.Context, lead domain.Lead, result *GeocodeBackfillResult) {
	query, ok := b.queries.StoredGeocodeQuery(lead)
	if !ok {
		result.Skipped++
		b.log.Info("skipping placeholder address", "leadId", lead.ID)
		return
	}

	coords, err := b.geocoder.Geocode(ctx, query)
	if err != nil {
		result.Failed++
		b.log.Error("geocode failed", "leadId", lead.ID, "error", err)
		return
	}
	if coords == nil {
		result.NoMatch++
		b.log.Info("no geocode result", "leadId", lead.ID, "query", query)
		return
	}

	if err := b.store.UpdateCoordinates(ctx, lead.ID, coords.Lat, coords.Lon); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			result.Skipped++
			return
		}
		result.Failed++
		b.log.Error("failed to update lead", "leadId", lead.ID, "error", err)
		return
	}

	result.Updated++
	b.log.Info("lead geocoded", "leadId", lead.ID, "lat", coords.Lat, "lon", coords.Lon)
}
