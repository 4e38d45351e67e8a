package geo

import (
	"math"
	"testing"

	"trip-optimizer-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKmKnownPair(t *testing.T) {
	// Jakarta to Bandung is roughly 115-120 km.
	d := DistanceKm(domain.Coordinates{Lat: -6.2, Lon: 106.816}, domain.Coordinates{Lat: -6.9175, Lon: 107.6191})
	assert.InDelta(t, 118, d, 10)
}

func TestDistanceKmIdentityAndSymmetry(t *testing.T) {
	points := []domain.Coordinates{
		{Lat: 0, Lon: 0},
		{Lat: 43.263, Lon: -2.935},
		{Lat: -33.86, Lon: 151.21},
		{Lat: 89.9, Lon: 179.9},
		{Lat: -45, Lon: -120},
	}

	for _, a := range points {
		assert.Zero(t, DistanceKm(a, a))
		for _, b := range points {
			assert.Equal(t, DistanceKm(a, b), DistanceKm(b, a), "%v <-> %v", a, b)
			if a != b {
				assert.Greater(t, DistanceKm(a, b), 0.0)
			}
		}
	}
}

func TestDistanceKmNearAntipodalIsFinite(t *testing.T) {
	maxKm := math.Pi * EarthRadiusKm

	for lat := -89.5; lat <= 89.5; lat += 0.5 {
		for lon := -180.0; lon <= 0; lon += 7.5 {
			for _, eps := range []float64{0, 1e-13, 1e-9, 1e-6} {
				a := domain.Coordinates{Lat: lat, Lon: lon}
				b := domain.Coordinates{Lat: -lat + eps, Lon: lon + 180 - eps}

				d := DistanceKm(a, b)
				if math.IsNaN(d) || d > maxKm+1e-6 {
					t.Fatalf("DistanceKm(%v, %v) = %v, want finite and <= %v", a, b, d, maxKm)
				}
			}
		}
	}
}

func TestDistanceKmOneDegreeOfLatitude(t *testing.T) {
	d := DistanceKm(domain.Coordinates{Lat: 0, Lon: 0}, domain.Coordinates{Lat: 1, Lon: 0})
	assert.InDelta(t, EarthRadiusKm*math.Pi/180, d, 1e-9)
}

func TestRadianConversionRoundTrip(t *testing.T) {
	assert.InDelta(t, math.Pi, ToRadians(180), 1e-12)
	assert.InDelta(t, 57.2957795, ToDegrees(1), 1e-6)
	assert.InDelta(t, 12.5, ToDegrees(ToRadians(12.5)), 1e-12)
}

func TestPathKm(t *testing.T) {
	a := domain.Coordinates{Lat: 0, Lon: 0}
	b := domain.Coordinates{Lat: 1, Lon: 0}
	c := domain.Coordinates{Lat: 1, Lon: 1}

	assert.Zero(t, PathKm(nil))
	assert.Zero(t, PathKm([]domain.Coordinates{a}))
	assert.InDelta(t, DistanceKm(a, b)+DistanceKm(b, c), PathKm([]domain.Coordinates{a, b, c}), 1e-9)
}

func TestBoundingBoxContainsCenter(t *testing.T) {
	c := domain.Coordinates{Lat: 43.263, Lon: -2.935}
	box := BoundingBox(c, 50)

	require.True(t, box.Contains(c.Point()))
	assert.InDelta(t, 50, DistanceKm(c, domain.Coordinates{Lat: box.Max.Lat(), Lon: c.Lon}), 0.5)

	edge := BoundingBox(domain.Coordinates{Lat: 89.9, Lon: 179.9}, 100)
	assert.LessOrEqual(t, edge.Max.Lat(), 90.0)
	assert.LessOrEqual(t, edge.Max.Lon(), 180.0)
}

func TestLineThrough(t *testing.T) {
	ls := LineThrough([]domain.Coordinates{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}})
	require.Len(t, ls, 2)
	assert.Equal(t, 2.0, ls[0].Lon())
	assert.Equal(t, 3.0, ls[1].Lat())
}
