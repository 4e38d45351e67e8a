package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripopt",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tripopt",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"method"})

	// Routing
	ProviderAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripopt",
		Subsystem: "routing",
		Name:      "provider_attempts_total",
		Help:      "Routing provider attempts by outcome kind",
	}, []string{"provider", "outcome"})

	RouteFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripopt",
		Subsystem: "routing",
		Name:      "fallback_estimates_total",
		Help:      "Straight-line fallback estimates returned, by reason",
	}, []string{"reason"})

	// Caches
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripopt",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"cache"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripopt",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"cache"})

	// Optimization runs
	Optimizations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripopt",
		Subsystem: "optimizer",
		Name:      "runs_total",
		Help:      "Optimization runs by result",
	}, []string{"result"})

	OptimizationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tripopt",
		Subsystem: "optimizer",
		Name:      "run_duration_seconds",
		Help:      "End-to-end optimization latency",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})
)

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }
