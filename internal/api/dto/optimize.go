package dto

import (
	"github.com/paulmach/orb/geojson"

	"trip-optimizer-service/internal/domain"
)

// RouteResponse describes a routed or estimated route. Estimated routes
// carry a straight-line geometry and must not be shown as traffic-aware.
type RouteResponse struct {
	DurationSeconds float64           `json:"duration_seconds"`
	DistanceMeters  float64           `json:"distance_meters"`
	Estimated       bool              `json:"estimated"`
	Provider        string            `json:"provider,omitempty"`
	FallbackReason  string            `json:"fallback_reason,omitempty"`
	Geometry        *geojson.Geometry `json:"geometry,omitempty"`
}

type OptimizeResponse struct {
	Start               PlaceResponse  `json:"start"`
	OptimizedOrder      []StopResponse `json:"optimized_order"`
	OptimizedRoute      RouteResponse  `json:"optimized_route"`
	OriginalRoute       RouteResponse  `json:"original_route"`
	TimeSavedSeconds    float64        `json:"time_saved_seconds"`
	TotalDistanceMeters float64        `json:"total_distance_meters"`
	Estimated           bool           `json:"estimated"`
	ReturnToStart       bool           `json:"return_to_start"`
	Phases              []string       `json:"phases"`
	MapURL              string         `json:"map_url"`
}

func NewRouteResponse(r domain.RouteResult) RouteResponse {
	res := RouteResponse{
		DurationSeconds: r.DurationSeconds,
		DistanceMeters:  r.DistanceMeters,
		Estimated:       r.Estimated,
		Provider:        r.Provider,
	}
	if r.Estimated {
		res.FallbackReason = r.FallbackReason.String()
	}
	if len(r.Geometry) > 0 {
		res.Geometry = geojson.NewGeometry(r.Geometry)
	}
	return res
}

type SearchResponse struct {
	Query   string          `json:"query"`
	Results []PlaceResponse `json:"results"`
}
