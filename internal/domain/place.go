package domain

// Place is a resolved location produced by the location resolver.
// It is treated as immutable once created; ranking helpers return copies.
type Place struct {
	Address string
	Coords  Coordinates

	// Straight-line distance to the reference point used while ranking
	// candidates. Zero when the place was resolved without a reference.
	StraightLineKm float64

	// Driving estimate relative to the ranking reference point.
	// Nil when no estimate was requested or the estimate failed.
	DrivingSeconds *float64
	DrivingMeters  *float64
}

// HasDrivingTime reports whether a driving-time estimate is attached.
func (p Place) HasDrivingTime() bool { return p.DrivingSeconds != nil }

// WithDrivingEstimate returns a copy of p carrying the given estimate.
func (p Place) WithDrivingEstimate(seconds, meters float64) Place {
	p.DrivingSeconds = &seconds
	p.DrivingMeters = &meters
	return p
}
