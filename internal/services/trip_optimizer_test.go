package services

import (
	"context"
	"testing"

	"trip-optimizer-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	places  map[string]domain.Place
	queries []string
	generic []string
}

func (f *fakeResolver) lookup(query string) []domain.Place {
	f.queries = append(f.queries, query)
	if p, ok := f.places[query]; ok {
		return []domain.Place{p}
	}
	return nil
}

func (f *fakeResolver) Resolve(_ context.Context, query string) []domain.Place {
	return f.lookup(query)
}

func (f *fakeResolver) ResolveNear(_ context.Context, query string, _ domain.Coordinates) []domain.Place {
	return f.lookup(query)
}

func (f *fakeResolver) ResolveNearWithDrivingTime(_ context.Context, query string, _ domain.Coordinates) []domain.Place {
	f.generic = append(f.generic, query)
	return f.lookup(query)
}

func (f *fakeResolver) ReverseGeocode(_ context.Context, c domain.Coordinates) string {
	return c.String()
}

type fakeRoutes struct {
	calls   [][]domain.Coordinates
	results []domain.RouteResult
	err     error
}

func (f *fakeRoutes) CalculateRoute(_ context.Context, wps []domain.Coordinates) (domain.RouteResult, error) {
	f.calls = append(f.calls, wps)
	if f.err != nil {
		return domain.RouteResult{}, f.err
	}
	return f.results[len(f.calls)-1], nil
}

func newPlan(t *testing.T, addresses ...string) *domain.TripPlan {
	t.Helper()
	plan := domain.NewTripPlan()
	plan.SetStart(domain.Place{Address: "Home", Coords: domain.Coordinates{Lat: 0, Lon: 0}})
	for _, a := range addresses {
		plan.AddStop(a)
	}
	return plan
}

func place(addr string, lat, lon float64) domain.Place {
	return domain.Place{Address: addr, Coords: domain.Coordinates{Lat: lat, Lon: lon}}
}

func TestRunOptimizesAndReportsSavings(t *testing.T) {
	plan := newPlan(t, "3 Far Road", "1 Near Road", "2 Mid Road")
	res := &fakeResolver{places: map[string]domain.Place{
		"3 Far Road":  place("3 Far Road", 3, 0),
		"1 Near Road": place("1 Near Road", 1, 0),
		"2 Mid Road":  place("2 Mid Road", 2, 0),
	}}
	routes := &fakeRoutes{results: []domain.RouteResult{
		{DurationSeconds: 1000, DistanceMeters: 9000},
		{DurationSeconds: 700, DistanceMeters: 6000},
	}}

	var phases []string
	got, err := NewTripOptimizer(res, routes).Run(context.Background(), plan, func(p string) {
		phases = append(phases, p)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{PhaseResolving, PhaseRouting, PhaseOptimizing}, phases)
	assert.Equal(t, []int64{2, 3, 1}, ids(got.OptimizedOrder))
	assert.Equal(t, 300.0, got.TimeSavedSeconds)
	assert.Equal(t, 6000.0, got.TotalDistanceMeters)
	assert.Equal(t, 1000.0, got.OriginalRoute.DurationSeconds)
	assert.Equal(t, 700.0, got.OptimizedRoute.DurationSeconds)
	assert.NotEmpty(t, got.MapURL)

	require.Len(t, routes.calls, 2)
	assert.Equal(t, []domain.Coordinates{{}, {Lat: 3}, {Lat: 1}, {Lat: 2}}, routes.calls[0], "baseline keeps input order")
	assert.Equal(t, []domain.Coordinates{{}, {Lat: 1}, {Lat: 2}, {Lat: 3}}, routes.calls[1])

	for _, s := range plan.Snapshot().Stops {
		assert.True(t, s.Resolved(), "stop %d should be resolved", s.ID)
	}
	assert.False(t, plan.Busy())
}

func TestRunAppendsReturnLeg(t *testing.T) {
	plan := newPlan(t, "1 Near Road")
	plan.SetReturnToStart(true)
	res := &fakeResolver{places: map[string]domain.Place{"1 Near Road": place("1 Near Road", 1, 0)}}
	routes := &fakeRoutes{results: []domain.RouteResult{{DurationSeconds: 100}}}

	got, err := NewTripOptimizer(res, routes).Run(context.Background(), plan, nil)

	require.NoError(t, err)
	require.Len(t, routes.calls, 1, "an unchanged order reuses the baseline route")
	assert.Equal(t, []domain.Coordinates{{}, {Lat: 1}, {}}, routes.calls[0])
	assert.Zero(t, got.TimeSavedSeconds)
	assert.True(t, got.ReturnToStart)
}

func TestRunWithoutDestinations(t *testing.T) {
	plan := newPlan(t, "   ", "")
	res := &fakeResolver{}
	routes := &fakeRoutes{}

	_, err := NewTripOptimizer(res, routes).Run(context.Background(), plan, nil)

	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	e, _ := domain.AsError(err)
	assert.Equal(t, "please add at least one destination", e.Message)
	assert.Empty(t, res.queries)
	assert.Empty(t, routes.calls)
}

func TestRunWithoutStart(t *testing.T) {
	plan := domain.NewTripPlan()
	plan.AddStop("1 Near Road")

	_, err := NewTripOptimizer(&fakeResolver{}, &fakeRoutes{}).Run(context.Background(), plan, nil)

	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestRunGeocodeMissLeavesPlanUntouched(t *testing.T) {
	plan := newPlan(t, "1 Near Road", "Atlantis 99")
	res := &fakeResolver{places: map[string]domain.Place{"1 Near Road": place("1 Near Road", 1, 0)}}
	routes := &fakeRoutes{}

	_, err := NewTripOptimizer(res, routes).Run(context.Background(), plan, nil)

	require.Error(t, err)
	e, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindGeocodeMiss, e.Kind)
	assert.Equal(t, "Atlantis 99", e.Query)
	assert.Contains(t, e.Message, "could not find location: Atlantis 99")
	assert.Empty(t, routes.calls)

	for _, s := range plan.Snapshot().Stops {
		assert.False(t, s.Resolved(), "stop %d must not be partially resolved", s.ID)
	}
}

func TestRunUsesNearestBranchForGenericQueries(t *testing.T) {
	plan := newPlan(t, "Starbucks", "12 High Street")
	res := &fakeResolver{places: map[string]domain.Place{
		"Starbucks":      place("Starbucks", 1, 0),
		"12 High Street": place("12 High Street", 2, 0),
	}}
	routes := &fakeRoutes{results: []domain.RouteResult{{DurationSeconds: 10}, {DurationSeconds: 10}}}

	_, err := NewTripOptimizer(res, routes).Run(context.Background(), plan, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"Starbucks"}, res.generic)
}

func TestRunSkipsResolvedStops(t *testing.T) {
	plan := newPlan(t, "1 Near Road")
	id := plan.Snapshot().Stops[0].ID
	require.NoError(t, plan.SetStopPlace(id, place("1 Near Road", 1, 0)))
	res := &fakeResolver{}
	routes := &fakeRoutes{results: []domain.RouteResult{{DurationSeconds: 10}}}

	_, err := NewTripOptimizer(res, routes).Run(context.Background(), plan, nil)

	require.NoError(t, err)
	assert.Empty(t, res.queries)
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	plan := newPlan(t, "1 Near Road")
	require.True(t, plan.TryBegin())
	defer plan.End()

	_, err := NewTripOptimizer(&fakeResolver{}, &fakeRoutes{}).Run(context.Background(), plan, nil)

	assert.Equal(t, domain.KindBusy, domain.KindOf(err))
	assert.True(t, plan.Busy(), "a rejected run must not clear another run's flag")
}

func TestRunSurfacesRouteErrors(t *testing.T) {
	plan := newPlan(t, "1 Near Road")
	res := &fakeResolver{places: map[string]domain.Place{"1 Near Road": place("1 Near Road", 1, 0)}}
	routes := &fakeRoutes{err: &domain.Error{Kind: domain.KindNoRoute, Provider: "osrm"}}

	_, err := NewTripOptimizer(res, routes).Run(context.Background(), plan, nil)

	assert.Equal(t, domain.KindNoRoute, domain.KindOf(err))
	assert.False(t, plan.Busy())
}

func TestTimeSavedNeverNegative(t *testing.T) {
	tests := []struct {
		baseline, optimized, want float64
	}{
		{1000, 700, 300},
		{700, 1000, 0},
		{500, 500, 0},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := TimeSaved(tt.baseline, tt.optimized); got != tt.want {
			t.Fatalf("TimeSaved(%v, %v) = %v, want %v", tt.baseline, tt.optimized, got, tt.want)
		}
	}
}
