package services

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"trip-optimizer-service/internal/domain"
	"trip-optimizer-service/internal/platform/metrics"
	"trip-optimizer-service/internal/platform/obs"
	"trip-optimizer-service/internal/ports"
	"trip-optimizer-service/internal/resolver"
)

// Progress phases reported by TripOptimizer.Run.
const (
	PhaseResolving  = "resolving locations"
	PhaseRouting    = "calculating route"
	PhaseOptimizing = "optimizing order"
)

// ProgressFunc receives coarse phase notifications. It may be nil.
type ProgressFunc func(phase string)

type OptimizationResult struct {
	OptimizedOrder []domain.Stop
	OptimizedRoute domain.RouteResult
	OriginalRoute  domain.RouteResult

	// Baseline minus optimized duration, never negative.
	TimeSavedSeconds    float64
	TotalDistanceMeters float64

	Start         domain.Place
	ReturnToStart bool
	DepartAt      *time.Time
	MapURL        string
}

// TripOptimizer runs the resolve -> baseline route -> reorder -> optimized
// route pipeline for one trip plan. Stages run strictly one after another.
type TripOptimizer struct {
	places ports.PlaceResolver
	routes ports.RouteCalculator
}

func NewTripOptimizer(places ports.PlaceResolver, routes ports.RouteCalculator) *TripOptimizer {
	return &TripOptimizer{places: places, routes: routes}
}

// Run optimizes the visiting order of plan's stops.
//
// Stops with a blank address are ignored. Resolved places are written back to
// the plan only once every stop resolved; the optimized order is returned and
// not applied. A second Run on the same plan while one is in flight fails
// with KindBusy.
func (o *TripOptimizer) Run(
	ctx context.Context,
	plan *domain.TripPlan,
	progress ProgressFunc,
) (_ *OptimizationResult, err error) {
	if !plan.TryBegin() {
		metrics.Optimizations.WithLabelValues("busy").Inc()
		return nil, domain.NewError(domain.KindBusy, "an optimization is already running")
	}
	defer plan.End()

	defer obs.Time(ctx, "services.TripOptimizer.Run")(&err)
	began := time.Now()
	defer func() {
		metrics.OptimizationDuration.Observe(time.Since(began).Seconds())
		result := "ok"
		if err != nil {
			result = domain.KindOf(err).String()
		}
		metrics.Optimizations.WithLabelValues(result).Inc()
	}()

	if progress == nil {
		progress = func(string) {}
	}

	snap := plan.Snapshot()

	stops := make([]domain.Stop, 0, len(snap.Stops))
	for _, s := range snap.Stops {
		if s.HasAddress() {
			stops = append(stops, s)
		}
	}
	if len(stops) == 0 {
		return nil, domain.NewError(domain.KindValidation, "please add at least one destination")
	}
	if snap.Start == nil {
		return nil, domain.NewError(domain.KindValidation, "please set a start location")
	}
	if err := snap.Start.Coords.Validate(); err != nil {
		return nil, &domain.Error{Kind: domain.KindValidation, Message: "invalid start location", Err: err}
	}
	start := *snap.Start

	progress(PhaseResolving)
	if err := o.resolveStops(ctx, plan, start.Coords, stops); err != nil {
		return nil, err
	}

	progress(PhaseRouting)
	original, err := o.routes.CalculateRoute(ctx, waypoints(start.Coords, stops, snap.ReturnToStart))
	if err != nil {
		return nil, fmt.Errorf("run optimization: original route: %w", err)
	}

	progress(PhaseOptimizing)
	order, err := OptimizeOrder(start.Coords, stops)
	if err != nil {
		return nil, fmt.Errorf("run optimization: %w", err)
	}

	optimized := original
	if !sameOrder(stops, order) {
		optimized, err = o.routes.CalculateRoute(ctx, waypoints(start.Coords, order, snap.ReturnToStart))
		if err != nil {
			return nil, fmt.Errorf("run optimization: optimized route: %w", err)
		}
	}

	return &OptimizationResult{
		OptimizedOrder:      order,
		OptimizedRoute:      optimized,
		OriginalRoute:       original,
		TimeSavedSeconds:    TimeSaved(original.DurationSeconds, optimized.DurationSeconds),
		TotalDistanceMeters: optimized.DistanceMeters,
		Start:               start,
		ReturnToStart:       snap.ReturnToStart,
		DepartAt:            snap.DepartAt,
		MapURL:              BuildExternalMapURL(start.Coords, order, snap.ReturnToStart, snap.DepartAt),
	}, nil
}

// resolveStops fills in missing places in stops and commits them to plan.
// On the first miss it returns without touching plan.
func (o *TripOptimizer) resolveStops(
	ctx context.Context,
	plan *domain.TripPlan,
	ref domain.Coordinates,
	stops []domain.Stop,
) error {
	resolved := make(map[int64]domain.Place)

	for i, s := range stops {
		if s.Resolved() {
			continue
		}

		var places []domain.Place
		if resolver.IsGeneric(s.Address) {
			places = o.places.ResolveNearWithDrivingTime(ctx, s.Address, ref)
		} else {
			places = o.places.ResolveNear(ctx, s.Address, ref)
		}
		if len(places) == 0 {
			return &domain.Error{
				Kind:    domain.KindGeocodeMiss,
				Query:   s.Address,
				Message: "could not find location: " + s.Address,
			}
		}

		place := places[0]
		stops[i].Place = &place
		resolved[s.ID] = place
	}

	if len(resolved) == 0 {
		return nil
	}
	if err := plan.SetStopPlaces(resolved); err != nil {
		// The stop list changed underneath the run; the local copy stays usable.
		obs.Logger(ctx).Warn("could not store resolved places", "err", err)
	}
	return nil
}

// TimeSaved returns max(0, baseline-optimized).
func TimeSaved(baselineSeconds, optimizedSeconds float64) float64 {
	saved := baselineSeconds - optimizedSeconds
	if math.IsNaN(saved) || saved < 0 {
		return 0
	}
	return saved
}

func waypoints(start domain.Coordinates, stops []domain.Stop, returnToStart bool) []domain.Coordinates {
	out := make([]domain.Coordinates, 0, len(stops)+2)
	out = append(out, start)
	for _, s := range stops {
		out = append(out, s.Coords())
	}
	if returnToStart {
		out = append(out, start)
	}
	return out
}

func sameOrder(a, b []domain.Stop) bool {
	return slices.EqualFunc(a, b, func(x, y domain.Stop) bool { return x.ID == y.ID })
}
