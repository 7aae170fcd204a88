// Package ports defines the interfaces the leads module needs from other modules.
package ports

import (
	"context"

	"permitleads_backend/internal/leads/domain"
)

// Geocoder resolves a single-line address to coordinates. A nil result with a
// nil error means the address was not found.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*domain.Coordinates, error)
}
