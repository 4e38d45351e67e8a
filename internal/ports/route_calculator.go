package ports

import (
	"context"
	"trip-optimizer-service/internal/domain"
)

// Contract for a resilient route over an ordered list of waypoints.
// Implementations may return an estimated result instead of failing.
type RouteCalculator interface {
	CalculateRoute(ctx context.Context, waypoints []domain.Coordinates) (domain.RouteResult, error)
}
