package ports

import (
	"context"
	"trip-optimizer-service/internal/domain"
)

// Contract for an external routing service.
//
// Route must report provider-side refusals as *domain.Error with one of
// KindNoRoute, KindNoSegment, KindInvalidInput, KindTooBig, KindRateLimited,
// KindServerError or KindBadResponse. Transport failures may be returned as-is;
// the calculator classifies them.
type RoutingProvider interface {
	Name() string
	Route(ctx context.Context, waypoints []domain.Coordinates) (domain.RouteResult, error)
}
