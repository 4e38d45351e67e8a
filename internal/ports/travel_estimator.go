package ports

import (
	"context"
	"trip-optimizer-service/internal/domain"
)

// Contract for retrieving a two-point driving estimate.
type TravelEstimator interface {
	EstimateTravelTime(ctx context.Context, from, to domain.Coordinates) (domain.TravelEstimate, error)
}
