package routing

import (
	"fmt"

	"trip-optimizer-service/internal/domain"
	"trip-optimizer-service/internal/geo"
)

// ValidateWaypoints requires at least two waypoints with finite, in-range coordinates.
func ValidateWaypoints(waypoints []domain.Coordinates) error {
	if len(waypoints) < 2 {
		return &domain.Error{
			Kind:    domain.KindValidation,
			Message: fmt.Sprintf("at least 2 waypoints are required, got %d", len(waypoints)),
		}
	}
	for i, w := range waypoints {
		if err := w.Validate(); err != nil {
			return &domain.Error{
				Kind:    domain.KindValidation,
				Message: fmt.Sprintf("waypoint %d", i),
				Err:     err,
			}
		}
	}
	return nil
}

// FallbackEstimate derives a route from straight-line distance across consecutive
// waypoints at a fixed average speed. The result is always marked Estimated.
func FallbackEstimate(waypoints []domain.Coordinates, speedKmh float64) domain.RouteResult {
	km := geo.PathKm(waypoints)
	return domain.RouteResult{
		DurationSeconds: km / speedKmh * 3600,
		DistanceMeters:  km * 1000,
		Geometry:        geo.LineThrough(waypoints),
		Estimated:       true,
	}
}
