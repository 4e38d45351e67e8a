package ports

import (
	"context"
	"trip-optimizer-service/internal/domain"
)

// Cache of geocoding search results keyed by a normalized query.
type GeocodeCache interface {
	Get(ctx context.Context, key string) ([]GeocodeCandidate, bool, error)
	Put(ctx context.Context, key string, candidates []GeocodeCandidate) error
}

// Cache of routed two-point estimates.
type TravelTimeCache interface {
	Get(ctx context.Context, from, to domain.Coordinates) (domain.TravelEstimate, bool, error)
	Put(ctx context.Context, from, to domain.Coordinates, est domain.TravelEstimate) error
}
