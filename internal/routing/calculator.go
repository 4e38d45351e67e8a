package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"trip-optimizer-service/internal/domain"
	"trip-optimizer-service/internal/platform/metrics"
	"trip-optimizer-service/internal/platform/obs"
	"trip-optimizer-service/internal/ports"
)

// Config tunes retry, timeout and fallback behaviour.
type Config struct {
	// Extra attempts per provider after the first one.
	MaxRetries int
	// Bound on a single full-route request.
	RequestTimeout time.Duration
	// Bound on a single two-point estimate request.
	EstimateTimeout time.Duration
	// Return a straight-line estimate instead of failing when routing is unavailable.
	FallbackEnabled bool
	// Average speed assumed by the fallback estimate.
	FallbackSpeedKmh float64
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:       2,
		RequestTimeout:   20 * time.Second,
		EstimateTimeout:  5 * time.Second,
		FallbackEnabled:  true,
		FallbackSpeedKmh: 50,
	}
}

// Calculator obtains real or estimated routes from an ordered list of providers.
//
// Per provider it makes up to MaxRetries+1 attempts with exponential backoff
// between retryable failures, fails over to the next provider, and once every
// provider is exhausted classifies the collected errors into a single outcome:
// a fallback estimate or a typed *domain.Error.
//
// The calculator holds no per-call state and is safe for concurrent use.
type Calculator struct {
	providers    []ports.RoutingProvider
	connectivity ports.ConnectivityChecker
	travelCache  ports.TravelTimeCache
	cfg          Config

	sleep func(ctx context.Context, d time.Duration) error
}

// NewCalculator builds a calculator. connectivity and travelCache may be nil.
func NewCalculator(
	cfg Config,
	providers []ports.RoutingProvider,
	connectivity ports.ConnectivityChecker,
	travelCache ports.TravelTimeCache,
) (*Calculator, error) {
	if len(providers) == 0 {
		return nil, errors.New("new calculator: at least one routing provider is required")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("new calculator: max retries must be >= 0, got %d", cfg.MaxRetries)
	}

	def := DefaultConfig()
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.EstimateTimeout <= 0 {
		cfg.EstimateTimeout = def.EstimateTimeout
	}
	if cfg.FallbackSpeedKmh <= 0 {
		cfg.FallbackSpeedKmh = def.FallbackSpeedKmh
	}

	return &Calculator{
		providers:    providers,
		connectivity: connectivity,
		travelCache:  travelCache,
		cfg:          cfg,
		sleep:        sleepCtx,
	}, nil
}

// MaxRouteDuration is the longest a single CalculateRoute call can take when
// every attempt runs into its timeout: all attempts and backoff pauses on every
// provider, plus the connectivity probe that follows.
func (c *Calculator) MaxRouteDuration(probeTimeout time.Duration) time.Duration {
	perProvider := time.Duration(c.cfg.MaxRetries+1) * c.cfg.RequestTimeout
	for n := 0; n < c.cfg.MaxRetries; n++ {
		perProvider += Backoff(n)
	}
	return time.Duration(len(c.providers))*perProvider + probeTimeout
}

// attemptState is the position of the provider/retry state machine.
type attemptState struct {
	provider int
	attempt  int
	errs     []*domain.Error
}

// CalculateRoute returns a driving route through waypoints in order.
//
// Invalid waypoints fail immediately with KindValidation, before any network call.
func (c *Calculator) CalculateRoute(
	ctx context.Context,
	waypoints []domain.Coordinates,
) (_ domain.RouteResult, err error) {
	defer obs.Time(ctx, "routing.CalculateRoute")(&err)

	if err := ValidateWaypoints(waypoints); err != nil {
		return domain.RouteResult{}, err
	}

	if c.connectivity != nil && !c.connectivity.Online() {
		return c.fallbackOr(ctx, waypoints, &domain.Error{
			Kind:    domain.KindOffline,
			Message: "no network connectivity",
		})
	}

	var st attemptState
	for st.provider = 0; st.provider < len(c.providers); st.provider++ {
		p := c.providers[st.provider]

		for st.attempt = 0; st.attempt <= c.cfg.MaxRetries; st.attempt++ {
			res, rerr := c.attempt(ctx, p, waypoints, st.attempt+1)
			if rerr == nil {
				return res, nil
			}
			if cerr := ctx.Err(); cerr != nil {
				return domain.RouteResult{}, fmt.Errorf("calculate route: %w", cerr)
			}

			st.errs = append(st.errs, rerr)
			obs.Logger(ctx).Debug("route attempt failed",
				"provider", p.Name(), "attempt", st.attempt+1, "kind", rerr.Kind.String(), "err", rerr)

			if !rerr.Kind.Retryable() {
				break
			}
			if st.attempt < c.cfg.MaxRetries {
				if err := c.sleep(ctx, Backoff(st.attempt)); err != nil {
					return domain.RouteResult{}, fmt.Errorf("calculate route: %w", err)
				}
			}
		}
	}

	return c.exhausted(ctx, waypoints, st.errs)
}

func (c *Calculator) attempt(
	ctx context.Context,
	p ports.RoutingProvider,
	waypoints []domain.Coordinates,
	attempt int,
) (domain.RouteResult, *domain.Error) {
	actx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	res, err := p.Route(actx, waypoints)
	if err == nil {
		if invalidMetric(res.DurationSeconds) || invalidMetric(res.DistanceMeters) {
			err = &domain.Error{
				Kind:    domain.KindBadResponse,
				Message: fmt.Sprintf("invalid metrics duration=%v distance=%v", res.DurationSeconds, res.DistanceMeters),
			}
		}
	}
	if err != nil {
		e := classify(err, p.Name(), attempt)
		metrics.ProviderAttempts.WithLabelValues(p.Name(), e.Kind.String()).Inc()
		return domain.RouteResult{}, e
	}

	metrics.ProviderAttempts.WithLabelValues(p.Name(), "ok").Inc()
	res.Provider = p.Name()
	res.Estimated = false
	res.FallbackReason = domain.KindUnknown
	return res, nil
}

// exhausted turns the errors of a fully failed provider loop into one outcome.
func (c *Calculator) exhausted(
	ctx context.Context,
	waypoints []domain.Coordinates,
	errs []*domain.Error,
) (domain.RouteResult, error) {
	var last error
	if len(errs) > 0 {
		last = errs[len(errs)-1]
	}
	obs.Logger(ctx).Warn("routing providers exhausted",
		"providers", len(c.providers), "attempts", len(errs), "last_err", last)

	allNetwork := len(errs) > 0
	for _, e := range errs {
		if !e.Kind.NetworkClass() {
			allNetwork = false
			break
		}
	}

	if allNetwork {
		if c.probe(ctx) != nil {
			return c.fallbackOr(ctx, waypoints, &domain.Error{
				Kind:    domain.KindOffline,
				Message: "routing services unreachable and connectivity check failed",
				Err:     last,
			})
		}
		return c.fallbackOr(ctx, waypoints, &domain.Error{
			Kind:    domain.KindProvidersUnavailable,
			Message: "routing services unreachable",
			Err:     last,
		})
	}

	for _, e := range errs {
		if e.Kind.Authoritative() {
			return domain.RouteResult{}, e
		}
	}

	for _, e := range errs {
		if e.Kind == domain.KindRateLimited {
			return domain.RouteResult{}, &domain.Error{
				Kind:     domain.KindRateLimited,
				Provider: e.Provider,
				Attempt:  e.Attempt,
				Message:  "routing service busy",
				Err:      e,
			}
		}
	}

	return c.fallbackOr(ctx, waypoints, &domain.Error{
		Kind:    domain.KindProvidersUnavailable,
		Message: "all routing providers failed",
		Err:     last,
	})
}

func (c *Calculator) probe(ctx context.Context) error {
	if c.connectivity == nil {
		return nil
	}
	return c.connectivity.Probe(ctx)
}

func (c *Calculator) fallbackOr(
	ctx context.Context,
	waypoints []domain.Coordinates,
	cause *domain.Error,
) (domain.RouteResult, error) {
	if !c.cfg.FallbackEnabled {
		return domain.RouteResult{}, cause
	}

	res := FallbackEstimate(waypoints, c.cfg.FallbackSpeedKmh)
	res.FallbackReason = cause.Kind
	metrics.RouteFallbacks.WithLabelValues(cause.Kind.String()).Inc()
	obs.Logger(ctx).Warn("using straight-line route estimate", "reason", cause.Kind.String(), "err", cause)
	return res, nil
}

func invalidMetric(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0) || v < 0
}
