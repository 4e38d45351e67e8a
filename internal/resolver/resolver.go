// Package resolver turns free-text queries into ranked candidate places.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"trip-optimizer-service/internal/domain"
	"trip-optimizer-service/internal/geo"
	"trip-optimizer-service/internal/platform/metrics"
	"trip-optimizer-service/internal/platform/obs"
	"trip-optimizer-service/internal/ports"

	"github.com/paulmach/orb"
	"golang.org/x/time/rate"
)

type Config struct {
	// Half-width of the region searches are biased toward.
	SearchRadiusKm float64
	// Candidates that get a driving-time estimate in ResolveNearWithDrivingTime.
	CandidateLimit int
	// Pause between consecutive driving-time lookups.
	EstimatePause time.Duration
	// Bound on a single geocoding request.
	GeocodeTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		SearchRadiusKm: 50,
		CandidateLimit: 3,
		EstimatePause:  100 * time.Millisecond,
		GeocodeTimeout: 10 * time.Second,
	}
}

// Resolver never fails a lookup: geocoding problems are logged and reported
// as an empty candidate list, which callers treat as "not found".
type Resolver struct {
	geocoder  ports.Geocoder
	estimator ports.TravelEstimator
	cache     ports.GeocodeCache
	cfg       Config
}

// New builds a resolver. estimator and cache may be nil; without an estimator
// ResolveNearWithDrivingTime degrades to straight-line ranking.
func New(cfg Config, geocoder ports.Geocoder, estimator ports.TravelEstimator, cache ports.GeocodeCache) *Resolver {
	def := DefaultConfig()
	if cfg.SearchRadiusKm <= 0 {
		cfg.SearchRadiusKm = def.SearchRadiusKm
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = def.CandidateLimit
	}
	if cfg.EstimatePause < 0 {
		cfg.EstimatePause = 0
	}
	if cfg.GeocodeTimeout <= 0 {
		cfg.GeocodeTimeout = def.GeocodeTimeout
	}

	return &Resolver{
		geocoder:  geocoder,
		estimator: estimator,
		cache:     cache,
		cfg:       cfg,
	}
}

// Resolve returns the geocoder's candidates for query in provider order.
func (r *Resolver) Resolve(ctx context.Context, query string) []domain.Place {
	cands := r.search(ctx, query, nil)

	out := make([]domain.Place, 0, len(cands))
	for _, c := range cands {
		out = append(out, domain.Place{Address: c.Address, Coords: c.Coords})
	}
	return out
}

// ResolveNear biases the search toward a region around ref and sorts the
// candidates by straight-line distance from ref, nearest first.
func (r *Resolver) ResolveNear(ctx context.Context, query string, ref domain.Coordinates) []domain.Place {
	if err := ref.Validate(); err != nil {
		obs.Logger(ctx).Warn("ignoring invalid reference point", "err", err)
		return r.Resolve(ctx, query)
	}

	bounds := geo.BoundingBox(ref, r.cfg.SearchRadiusKm)
	cands := r.search(ctx, query, &bounds)

	out := make([]domain.Place, 0, len(cands))
	for _, c := range cands {
		out = append(out, domain.Place{
			Address:        c.Address,
			Coords:         c.Coords,
			StraightLineKm: geo.DistanceKm(ref, c.Coords),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StraightLineKm < out[j].StraightLineKm
	})
	return out
}

// ResolveNearWithDrivingTime picks the nearest branch of a generic query.
//
// The closest candidates by straight line each get a driving-time estimate,
// fetched one after another with EstimatePause between the end of one lookup
// and the start of the next. Timed candidates sort by
// driving time; candidates whose lookup failed follow, by straight line.
func (r *Resolver) ResolveNearWithDrivingTime(ctx context.Context, query string, ref domain.Coordinates) []domain.Place {
	ranked := r.ResolveNear(ctx, query, ref)
	if len(ranked) > r.cfg.CandidateLimit {
		ranked = ranked[:r.cfg.CandidateLimit]
	}
	if r.estimator == nil || ref.Validate() != nil {
		return ranked
	}

	for i := range ranked {
		if i > 0 {
			if err := r.pause(ctx); err != nil {
				obs.Logger(ctx).Debug("driving-time ranking interrupted", "err", err)
				break
			}
		}

		est, err := r.estimator.EstimateTravelTime(ctx, ref, ranked[i].Coords)
		if err != nil {
			obs.Logger(ctx).Debug("driving-time lookup failed",
				"query", query, "candidate", ranked[i].Address, "err", err)
			continue
		}
		ranked[i] = ranked[i].WithDrivingEstimate(est.DurationSeconds, est.DistanceMeters)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		switch {
		case a.HasDrivingTime() && b.HasDrivingTime():
			return *a.DrivingSeconds < *b.DrivingSeconds
		case a.HasDrivingTime() != b.HasDrivingTime():
			return a.HasDrivingTime()
		default:
			return a.StraightLineKm < b.StraightLineKm
		}
	})
	return ranked
}

// pause blocks for EstimatePause after a completed lookup. A fresh limiter is
// drained on entry so the wait starts now, whatever the last lookup took.
func (r *Resolver) pause(ctx context.Context) error {
	if r.cfg.EstimatePause <= 0 {
		return nil
	}
	gap := rate.NewLimiter(rate.Every(r.cfg.EstimatePause), 1)
	gap.Allow()
	return gap.Wait(ctx)
}

// ReverseGeocode returns a display address for c, or "lat,lon" when the
// geocoder cannot produce one.
func (r *Resolver) ReverseGeocode(ctx context.Context, c domain.Coordinates) string {
	if err := c.Validate(); err != nil {
		return c.String()
	}

	gctx, cancel := context.WithTimeout(ctx, r.cfg.GeocodeTimeout)
	defer cancel()

	addr, err := r.reverse(gctx, c)
	if err != nil || strings.TrimSpace(addr) == "" {
		return c.String()
	}
	return addr
}

func (r *Resolver) reverse(ctx context.Context, c domain.Coordinates) (_ string, err error) {
	defer obs.Time(ctx, "resolver.ReverseGeocode")(&err)
	return r.geocoder.ReverseGeocode(ctx, c)
}

func (r *Resolver) search(ctx context.Context, query string, bounds *orb.Bound) []ports.GeocodeCandidate {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	key := cacheKey(query, bounds)
	if r.cache != nil {
		cands, ok, err := r.cache.Get(ctx, key)
		switch {
		case err != nil:
			obs.Logger(ctx).Warn("geocode cache read failed", "err", err)
		case ok:
			metrics.CacheHits.WithLabelValues("geocode").Inc()
			return cands
		default:
			metrics.CacheMisses.WithLabelValues("geocode").Inc()
		}
	}

	gctx, cancel := context.WithTimeout(ctx, r.cfg.GeocodeTimeout)
	defer cancel()

	cands, err := r.geocode(gctx, query, bounds)
	if err != nil {
		return nil
	}

	valid := cands[:0:0]
	for _, c := range cands {
		if c.Coords.Validate() != nil {
			continue
		}
		valid = append(valid, c)
	}

	if r.cache != nil && len(valid) > 0 {
		if err := r.cache.Put(ctx, key, valid); err != nil {
			obs.Logger(ctx).Warn("geocode cache write failed", "err", err)
		}
	}
	return valid
}

func (r *Resolver) geocode(ctx context.Context, query string, bounds *orb.Bound) (_ []ports.GeocodeCandidate, err error) {
	defer obs.Time(ctx, "resolver.Search")(&err)

	cands, err := r.geocoder.Search(ctx, query, bounds)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", query, err)
	}
	return cands, nil
}

// cacheKey normalises case and whitespace so equivalent queries share an entry.
func cacheKey(query string, bounds *orb.Bound) string {
	key := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if bounds == nil {
		return key
	}
	return fmt.Sprintf("%s|%.3f,%.3f,%.3f,%.3f", key,
		bounds.Min.Lon(), bounds.Min.Lat(), bounds.Max.Lon(), bounds.Max.Lat())
}
