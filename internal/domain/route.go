package domain

import "github.com/paulmach/orb"

// RouteResult is the outcome of a route calculation over an ordered list of waypoints.
// Estimated is true when the value was produced by the straight-line fallback;
// consumers must not present such a duration as routed fact.
type RouteResult struct {
	DurationSeconds float64
	DistanceMeters  float64
	Geometry        orb.LineString
	Estimated       bool

	// Provider that produced a routed result. Empty for estimates.
	Provider string

	// Why the fallback was used. KindUnknown for routed results.
	FallbackReason ErrorKind
}

// TravelEstimate is a two-point driving time/distance estimate used for
// ranking candidate places.
type TravelEstimate struct {
	DurationSeconds float64 `json:"duration_seconds"`
	DistanceMeters  float64 `json:"distance_meters"`
	Estimated       bool    `json:"estimated"`
}
