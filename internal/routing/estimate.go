package routing

import (
	"context"
	"fmt"

	"trip-optimizer-service/internal/domain"
	"trip-optimizer-service/internal/geo"
	"trip-optimizer-service/internal/platform/metrics"
	"trip-optimizer-service/internal/platform/obs"
	"trip-optimizer-service/internal/ports"
)

// EstimateTravelTime returns a driving estimate between two points for candidate ranking.
//
// Each provider is tried once with a short timeout; on any failure the
// straight-line estimate is returned instead. Only invalid input and
// cancellation of ctx produce an error.
func (c *Calculator) EstimateTravelTime(
	ctx context.Context,
	from, to domain.Coordinates,
) (domain.TravelEstimate, error) {
	if err := ValidateWaypoints([]domain.Coordinates{from, to}); err != nil {
		return domain.TravelEstimate{}, err
	}

	if c.travelCache != nil {
		est, ok, err := c.travelCache.Get(ctx, from, to)
		switch {
		case err != nil:
			obs.Logger(ctx).Warn("travel cache read failed", "err", err)
		case ok:
			metrics.CacheHits.WithLabelValues("travel").Inc()
			return est, nil
		default:
			metrics.CacheMisses.WithLabelValues("travel").Inc()
		}
	}

	if c.connectivity == nil || c.connectivity.Online() {
		for _, p := range c.providers {
			res, rerr := c.estimateOnce(ctx, p, from, to)
			if rerr == nil {
				est := domain.TravelEstimate{
					DurationSeconds: res.DurationSeconds,
					DistanceMeters:  res.DistanceMeters,
				}
				if c.travelCache != nil {
					if err := c.travelCache.Put(ctx, from, to, est); err != nil {
						obs.Logger(ctx).Warn("travel cache write failed", "err", err)
					}
				}
				return est, nil
			}
			if cerr := ctx.Err(); cerr != nil {
				return domain.TravelEstimate{}, fmt.Errorf("estimate travel time: %w", cerr)
			}
			obs.Logger(ctx).Debug("travel estimate attempt failed",
				"provider", p.Name(), "kind", rerr.Kind.String(), "err", rerr)
		}
	}

	km := geo.DistanceKm(from, to)
	return domain.TravelEstimate{
		DurationSeconds: km / c.cfg.FallbackSpeedKmh * 3600,
		DistanceMeters:  km * 1000,
		Estimated:       true,
	}, nil
}

func (c *Calculator) estimateOnce(
	ctx context.Context,
	p ports.RoutingProvider,
	from, to domain.Coordinates,
) (domain.RouteResult, *domain.Error) {
	ectx, cancel := context.WithTimeout(ctx, c.cfg.EstimateTimeout)
	defer cancel()

	res, err := p.Route(ectx, []domain.Coordinates{from, to})
	if err == nil && (invalidMetric(res.DurationSeconds) || invalidMetric(res.DistanceMeters)) {
		err = domain.NewError(domain.KindBadResponse, "invalid metrics")
	}
	if err != nil {
		e := classify(err, p.Name(), 1)
		metrics.ProviderAttempts.WithLabelValues(p.Name(), e.Kind.String()).Inc()
		return domain.RouteResult{}, e
	}
	metrics.ProviderAttempts.WithLabelValues(p.Name(), "ok").Inc()
	return res, nil
}
