// Package geo holds the pure geospatial helpers used by routing and ordering.
package geo

import (
	"math"

	"trip-optimizer-service/internal/domain"

	"github.com/paulmach/orb"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

func ToRadians(deg float64) float64 { return deg * math.Pi / 180 }

func ToDegrees(rad float64) float64 { return rad * 180 / math.Pi }

// DistanceKm returns the great-circle distance between a and b in kilometers.
// It is symmetric and zero when a == b.
func DistanceKm(a, b domain.Coordinates) float64 {
	if a == b {
		return 0
	}

	dLat := ToRadians(b.Lat - a.Lat)
	dLon := ToRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(ToRadians(a.Lat))*math.Cos(ToRadians(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push h just outside [0, 1] for near-antipodal points.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// PathKm sums the straight-line distance across consecutive points.
func PathKm(points []domain.Coordinates) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += DistanceKm(points[i-1], points[i])
	}
	return total
}

// BoundingBox returns a box of roughly radiusKm around c, clamped to valid ranges.
func BoundingBox(c domain.Coordinates, radiusKm float64) orb.Bound {
	latDelta := ToDegrees(radiusKm / EarthRadiusKm)
	lonDelta := latDelta
	if cos := math.Cos(ToRadians(c.Lat)); cos > 1e-9 {
		lonDelta = latDelta / cos
	}

	return orb.Bound{
		Min: orb.Point{math.Max(c.Lon-lonDelta, -180), math.Max(c.Lat-latDelta, -90)},
		Max: orb.Point{math.Min(c.Lon+lonDelta, 180), math.Min(c.Lat+latDelta, 90)},
	}
}

// LineThrough builds a straight-line path geometry through the points in order.
func LineThrough(points []domain.Coordinates) orb.LineString {
	ls := make(orb.LineString, 0, len(points))
	for _, p := range points {
		ls = append(ls, p.Point())
	}
	return ls
}
