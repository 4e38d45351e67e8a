package ports

import (
	"context"
	"trip-optimizer-service/internal/domain"

	"github.com/paulmach/orb"
)

// A raw geocoding hit before ranking.
type GeocodeCandidate struct {
	Address string             `json:"address"`
	Coords  domain.Coordinates `json:"coords"`
}

// Contract for turning free text into coordinates and back.
type Geocoder interface {
	// Search returns candidates for query. bounds, when non-nil, biases the search region.
	Search(ctx context.Context, query string, bounds *orb.Bound) ([]GeocodeCandidate, error)
	// ReverseGeocode returns a display address for the coordinates.
	ReverseGeocode(ctx context.Context, c domain.Coordinates) (string, error)
}
