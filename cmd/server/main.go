package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trip-optimizer-service/internal/adapters/cache"
	"trip-optimizer-service/internal/adapters/connectivity"
	"trip-optimizer-service/internal/adapters/providers"
	"trip-optimizer-service/internal/adapters/repositories"
	"trip-optimizer-service/internal/api"
	"trip-optimizer-service/internal/config"
	"trip-optimizer-service/internal/platform/db"
	"trip-optimizer-service/internal/platform/logging"
	"trip-optimizer-service/internal/ports"
	"trip-optimizer-service/internal/resolver"
	"trip-optimizer-service/internal/routing"
	"trip-optimizer-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (OSRM, ORS, Nominatim, caches) behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := &http.Client{}

	routers, err := buildRoutingProviders(cfg, session)
	if err != nil {
		return err
	}
	geocoder, err := buildGeocoder(cfg, session)
	if err != nil {
		return err
	}

	probe := connectivity.NewHTTPProbe(cfg.ConnectivityProbeURL, cfg.ProbeTimeout, session)
	go probe.Watch(ctx, cfg.ProbeInterval)

	geocodeCache, closeGeocodeCache, err := buildGeocodeCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeGeocodeCache()

	var travelCache ports.TravelTimeCache
	if client := db.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword); client != nil {
		defer client.Close()
		travelCache = cache.NewRedisTravelCache(client, cfg.TravelCacheTTL)
		slog.Info("travel time cache enabled", "addr", cfg.RedisAddr)
	}

	calc, err := routing.NewCalculator(routing.Config{
		MaxRetries:       cfg.RouteMaxRetries,
		RequestTimeout:   cfg.RouteRequestTimeout,
		EstimateTimeout:  cfg.EstimateTimeout,
		FallbackEnabled:  cfg.RouteFallbackEnabled,
		FallbackSpeedKmh: cfg.FallbackSpeedKmh,
	}, routers, probe, travelCache)
	if err != nil {
		return err
	}

	places := resolver.New(resolver.Config{
		SearchRadiusKm: cfg.SearchRadiusKm,
		CandidateLimit: cfg.CandidateLimit,
		EstimatePause:  cfg.EstimatePause,
		GeocodeTimeout: cfg.GeocodeTimeout,
	}, geocoder, calc, geocodeCache)

	optimizer := services.NewTripOptimizer(places, calc)

	sessions := repositories.NewMemorySessionRepository()
	go sweepSessions(ctx, sessions, cfg.SessionIdleTimeout)

	optimizeTimeout := cfg.OptimizeTimeout
	if optimizeTimeout == 0 {
		optimizeTimeout = optimizeBudget(calc.MaxRouteDuration(cfg.ProbeTimeout))
	}
	router := api.NewRouter(sessions, places, optimizer, optimizeTimeout)

	// The write deadline outlives the optimize deadline so a slow run still
	// gets its (possibly estimated) answer written back.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      optimizeTimeout + writeSlack,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr, "providers", cfg.ActiveRoutingProviders(),
			"geocoder", cfg.Geocoder, "optimize_timeout", optimizeTimeout.String())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

const (
	// Time allowed for resolving stops on top of the two route calculations.
	resolveAllowance = time.Minute
	writeSlack       = 10 * time.Second
)

// optimizeBudget covers a run where both the baseline and the optimized route
// hit every retry and timeout.
func optimizeBudget(maxRoute time.Duration) time.Duration {
	return 2*maxRoute + resolveAllowance
}

func buildRoutingProviders(cfg *config.Config, session *http.Client) ([]ports.RoutingProvider, error) {
	var out []ports.RoutingProvider
	for _, name := range cfg.ActiveRoutingProviders() {
		switch name {
		case "osrm":
			out = append(out, providers.NewOSRMRouter(cfg.OSRMBaseURL, cfg.UserAgent, session))
		case "ors":
			ors, err := providers.NewORSClient(cfg.ORSBaseURL, cfg.ORSAPIKey, cfg.UserAgent, session)
			if err != nil {
				return nil, err
			}
			out = append(out, ors)
		}
	}
	if skipped := len(cfg.RoutingProviders) - len(out); skipped > 0 {
		slog.Warn("routing providers skipped (missing ORS_API_KEY)", "count", skipped)
	}
	return out, nil
}

func buildGeocoder(cfg *config.Config, session *http.Client) (ports.Geocoder, error) {
	if cfg.Geocoder == "ors" {
		return providers.NewORSClient(cfg.ORSBaseURL, cfg.ORSAPIKey, cfg.UserAgent, session)
	}
	return providers.NewNominatimGeocoder(cfg.NominatimBaseURL, cfg.UserAgent, session), nil
}

// buildGeocodeCache opens the configured geocode cache and creates its schema.
// The returned close func is always safe to call.
func buildGeocodeCache(ctx context.Context, cfg *config.Config) (ports.GeocodeCache, func(), error) {
	switch cfg.GeocodeCache {
	case "sqlite":
		sqlite, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, func() {}, err
		}
		if err := cache.InitSQLiteSchema(sqlite); err != nil {
			sqlite.Close()
			return nil, func() {}, err
		}
		slog.Info("geocode cache enabled", "backend", "sqlite", "path", cfg.SQLitePath)
		return cache.NewSqliteGeocodeCache(sqlite), func() { sqlite.Close() }, nil

	case "postgres":
		pool, err := db.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, func() {}, err
		}
		if err := cache.InitPostgresSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, func() {}, err
		}
		slog.Info("geocode cache enabled", "backend", "postgres")
		return cache.NewPostgresGeocodeCache(pool), pool.Close, nil
	}
	return nil, func() {}, nil
}

func sweepSessions(ctx context.Context, repo *repositories.MemorySessionRepository, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(maxIdle / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := repo.Sweep(maxIdle); n > 0 {
				slog.Info("idle sessions removed", "count", n, "remaining", repo.Len())
			}
		}
	}
}
