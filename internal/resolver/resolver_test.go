package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"trip-optimizer-service/internal/domain"
	"trip-optimizer-service/internal/ports"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockGeocoder struct {
	searchFn  func(ctx context.Context, query string, bounds *orb.Bound) ([]ports.GeocodeCandidate, error)
	reverseFn func(ctx context.Context, c domain.Coordinates) (string, error)
	searches  int
}

func (m *mockGeocoder) Search(ctx context.Context, query string, bounds *orb.Bound) ([]ports.GeocodeCandidate, error) {
	m.searches++
	return m.searchFn(ctx, query, bounds)
}

func (m *mockGeocoder) ReverseGeocode(ctx context.Context, c domain.Coordinates) (string, error) {
	return m.reverseFn(ctx, c)
}

type mockEstimator struct {
	estimateFn func(from, to domain.Coordinates) (domain.TravelEstimate, error)
	calls      []domain.Coordinates
}

func (m *mockEstimator) EstimateTravelTime(_ context.Context, from, to domain.Coordinates) (domain.TravelEstimate, error) {
	m.calls = append(m.calls, to)
	return m.estimateFn(from, to)
}

type mapCache struct {
	m map[string][]ports.GeocodeCandidate
}

func (c *mapCache) Get(_ context.Context, key string) ([]ports.GeocodeCandidate, bool, error) {
	v, ok := c.m[key]
	return v, ok, nil
}

func (c *mapCache) Put(_ context.Context, key string, cands []ports.GeocodeCandidate) error {
	c.m[key] = cands
	return nil
}

var (
	ref  = domain.Coordinates{Lat: 40.4168, Lon: -3.7038}
	far  = ports.GeocodeCandidate{Address: "Far branch", Coords: domain.Coordinates{Lat: 40.60, Lon: -3.70}}
	mid  = ports.GeocodeCandidate{Address: "Mid branch", Coords: domain.Coordinates{Lat: 40.50, Lon: -3.70}}
	near = ports.GeocodeCandidate{Address: "Near branch", Coords: domain.Coordinates{Lat: 40.42, Lon: -3.70}}
	edge = ports.GeocodeCandidate{Address: "Edge branch", Coords: domain.Coordinates{Lat: 40.70, Lon: -3.70}}
)

func fixedSearch(cands ...ports.GeocodeCandidate) func(context.Context, string, *orb.Bound) ([]ports.GeocodeCandidate, error) {
	return func(context.Context, string, *orb.Bound) ([]ports.GeocodeCandidate, error) {
		return cands, nil
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.EstimatePause = 0
	return cfg
}

func addresses(places []domain.Place) []string {
	out := make([]string, 0, len(places))
	for _, p := range places {
		out = append(out, p.Address)
	}
	return out
}

func TestResolveKeepsProviderOrder(t *testing.T) {
	g := &mockGeocoder{searchFn: fixedSearch(far, near)}
	r := New(testConfig(), g, nil, nil)

	got := r.Resolve(context.Background(), "coffee")

	assert.Equal(t, []string{"Far branch", "Near branch"}, addresses(got))
}

func TestResolveReturnsEmptyOnFailure(t *testing.T) {
	g := &mockGeocoder{searchFn: func(context.Context, string, *orb.Bound) ([]ports.GeocodeCandidate, error) {
		return nil, errors.New("boom")
	}}
	r := New(testConfig(), g, nil, nil)

	assert.Empty(t, r.Resolve(context.Background(), "coffee"))
	assert.Empty(t, r.Resolve(context.Background(), "   "))
	assert.Equal(t, 1, g.searches, "blank queries never reach the geocoder")
}

func TestResolveDropsInvalidCoordinates(t *testing.T) {
	bad := ports.GeocodeCandidate{Address: "Nowhere", Coords: domain.Coordinates{Lat: 123, Lon: 0}}
	g := &mockGeocoder{searchFn: fixedSearch(bad, near)}
	r := New(testConfig(), g, nil, nil)

	assert.Equal(t, []string{"Near branch"}, addresses(r.Resolve(context.Background(), "x")))
}

func TestResolveNearBiasesAndSortsByDistance(t *testing.T) {
	var gotBounds *orb.Bound
	g := &mockGeocoder{searchFn: func(_ context.Context, _ string, b *orb.Bound) ([]ports.GeocodeCandidate, error) {
		gotBounds = b
		return []ports.GeocodeCandidate{far, near, mid}, nil
	}}
	r := New(testConfig(), g, nil, nil)

	got := r.ResolveNear(context.Background(), "coffee", ref)

	require.NotNil(t, gotBounds)
	assert.True(t, gotBounds.Contains(ref.Point()))
	assert.Equal(t, []string{"Near branch", "Mid branch", "Far branch"}, addresses(got))
	assert.Less(t, got[0].StraightLineKm, got[1].StraightLineKm)
	assert.Less(t, got[1].StraightLineKm, got[2].StraightLineKm)
}

func TestResolveNearWithDrivingTimeRanksByDrivingTime(t *testing.T) {
	g := &mockGeocoder{searchFn: fixedSearch(edge, far, near, mid)}
	est := &mockEstimator{estimateFn: func(_, to domain.Coordinates) (domain.TravelEstimate, error) {
		switch to {
		case near.Coords:
			return domain.TravelEstimate{DurationSeconds: 900, DistanceMeters: 2000}, nil
		case mid.Coords:
			return domain.TravelEstimate{DurationSeconds: 600, DistanceMeters: 9000}, nil
		default:
			return domain.TravelEstimate{DurationSeconds: 1200, DistanceMeters: 20000}, nil
		}
	}}
	r := New(testConfig(), g, est, nil)

	got := r.ResolveNearWithDrivingTime(context.Background(), "coffee", ref)

	assert.Equal(t, []string{"Mid branch", "Near branch", "Far branch"}, addresses(got))
	assert.Len(t, est.calls, 3, "only the top candidates are estimated")
	assert.Equal(t, []domain.Coordinates{near.Coords, mid.Coords, far.Coords}, est.calls, "lookups are serial in distance order")
	require.True(t, got[0].HasDrivingTime())
	assert.Equal(t, 600.0, *got[0].DrivingSeconds)
	assert.Equal(t, 9000.0, *got[0].DrivingMeters)
}

func TestResolveNearWithDrivingTimeDemotesFailedLookups(t *testing.T) {
	g := &mockGeocoder{searchFn: fixedSearch(far, near, mid)}
	est := &mockEstimator{estimateFn: func(_, to domain.Coordinates) (domain.TravelEstimate, error) {
		if to == far.Coords {
			return domain.TravelEstimate{DurationSeconds: 3000}, nil
		}
		return domain.TravelEstimate{}, errors.New("estimate failed")
	}}
	r := New(testConfig(), g, est, nil)

	got := r.ResolveNearWithDrivingTime(context.Background(), "coffee", ref)

	assert.Equal(t, []string{"Far branch", "Near branch", "Mid branch"}, addresses(got))
	assert.True(t, got[0].HasDrivingTime())
	assert.False(t, got[1].HasDrivingTime())
	assert.False(t, got[2].HasDrivingTime())
}

type lookupSpan struct{ start, end time.Time }

// timedEstimator records when each lookup starts and ends.
type timedEstimator struct {
	took  time.Duration
	spans []lookupSpan
}

func (e *timedEstimator) EstimateTravelTime(context.Context, domain.Coordinates, domain.Coordinates) (domain.TravelEstimate, error) {
	span := lookupSpan{start: time.Now()}
	time.Sleep(e.took)
	span.end = time.Now()
	e.spans = append(e.spans, span)
	return domain.TravelEstimate{DurationSeconds: 60}, nil
}

func TestResolveNearWithDrivingTimePausesBetweenLookups(t *testing.T) {
	const pause = 60 * time.Millisecond

	cfg := DefaultConfig()
	cfg.EstimatePause = pause
	g := &mockGeocoder{searchFn: fixedSearch(near, mid, far)}
	// Lookups slower than the pause must still be followed by the full pause.
	est := &timedEstimator{took: 2 * pause}
	r := New(cfg, g, est, nil)

	began := time.Now()
	got := r.ResolveNearWithDrivingTime(context.Background(), "coffee", ref)

	require.Len(t, got, 3)
	require.Len(t, est.spans, 3)
	assert.Less(t, est.spans[0].start.Sub(began), pause, "first lookup starts without waiting")
	for i := 1; i < len(est.spans); i++ {
		gap := est.spans[i].start.Sub(est.spans[i-1].end)
		assert.GreaterOrEqual(t, gap, pause-5*time.Millisecond, "gap before lookup %d", i+1)
	}
}

func TestResolveNearWithDrivingTimeStopsPausingOnCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EstimatePause = time.Hour
	g := &mockGeocoder{searchFn: fixedSearch(near, mid, far)}
	est := &timedEstimator{}
	r := New(cfg, g, est, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	got := r.ResolveNearWithDrivingTime(ctx, "coffee", ref)

	assert.Len(t, est.spans, 1, "only the first lookup runs before the pause is interrupted")
	assert.Equal(t, "Near branch", got[0].Address)
	assert.Len(t, got, 3)
}

func TestResolveNearWithDrivingTimeWithoutEstimator(t *testing.T) {
	g := &mockGeocoder{searchFn: fixedSearch(edge, far, near, mid)}
	r := New(testConfig(), g, nil, nil)

	got := r.ResolveNearWithDrivingTime(context.Background(), "coffee", ref)

	assert.Equal(t, []string{"Near branch", "Mid branch", "Far branch"}, addresses(got))
}

func TestReverseGeocodeFallsBackToCoordinates(t *testing.T) {
	c := domain.Coordinates{Lat: 40.4168, Lon: -3.7038}

	ok := &mockGeocoder{reverseFn: func(context.Context, domain.Coordinates) (string, error) {
		return "Puerta del Sol, Madrid", nil
	}}
	assert.Equal(t, "Puerta del Sol, Madrid", New(testConfig(), ok, nil, nil).ReverseGeocode(context.Background(), c))

	failing := &mockGeocoder{reverseFn: func(context.Context, domain.Coordinates) (string, error) {
		return "", errors.New("down")
	}}
	assert.Equal(t, "40.416800,-3.703800", New(testConfig(), failing, nil, nil).ReverseGeocode(context.Background(), c))

	blank := &mockGeocoder{reverseFn: func(context.Context, domain.Coordinates) (string, error) {
		return "  ", nil
	}}
	assert.Equal(t, "40.416800,-3.703800", New(testConfig(), blank, nil, nil).ReverseGeocode(context.Background(), c))
}

func TestSearchUsesCache(t *testing.T) {
	g := &mockGeocoder{searchFn: fixedSearch(near)}
	cache := &mapCache{m: map[string][]ports.GeocodeCandidate{}}
	r := New(testConfig(), g, nil, cache)

	first := r.Resolve(context.Background(), "Coffee  Shop")
	second := r.Resolve(context.Background(), "coffee shop")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, g.searches)
	assert.Contains(t, cache.m, "coffee shop")
}

func TestSearchDoesNotCacheMisses(t *testing.T) {
	g := &mockGeocoder{searchFn: fixedSearch()}
	cache := &mapCache{m: map[string][]ports.GeocodeCandidate{}}
	r := New(testConfig(), g, nil, cache)

	r.Resolve(context.Background(), "nowhere")
	r.Resolve(context.Background(), "nowhere")

	assert.Equal(t, 2, g.searches)
	assert.Empty(t, cache.m)
}

func TestIsGeneric(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"Starbucks", true},
		{"  shell station ", true},
		{"Mercadona", true},
		{"221B Baker Street", false},
		{"Gran Via, Madrid", false},
		{"the big red barn by the old mill", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsGeneric(tt.query), tt.query)
	}
}
