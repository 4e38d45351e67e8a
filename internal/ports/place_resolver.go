package ports

import (
	"context"
	"trip-optimizer-service/internal/domain"
)

// Contract for turning a free-text destination into ranked places.
// An empty result means "not found"; lookups never fail outright.
type PlaceResolver interface {
	Resolve(ctx context.Context, query string) []domain.Place
	ResolveNear(ctx context.Context, query string, ref domain.Coordinates) []domain.Place
	ResolveNearWithDrivingTime(ctx context.Context, query string, ref domain.Coordinates) []domain.Place
	ReverseGeocode(ctx context.Context, c domain.Coordinates) string
}
