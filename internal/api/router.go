package api

import (
	"net/http"
	"time"

	"trip-optimizer-service/internal/api/handlers"
	"trip-optimizer-service/internal/platform/metrics"
	"trip-optimizer-service/internal/ports"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(
	sessions ports.SessionRepository,
	places ports.PlaceResolver,
	optimizer handlers.Optimizer,
	optimizeTimeout time.Duration,
) http.Handler {
	mux := http.NewServeMux()

	sessionHandler := &handlers.SessionHandler{Repo: sessions, Places: places}
	optimizeHandler := &handlers.OptimizeHandler{Repo: sessions, Optimizer: optimizer, Timeout: optimizeTimeout}
	geocodeHandler := &handlers.GeocodeHandler{Places: places}

	mux.HandleFunc("GET /health", handlers.Health)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /sessions", sessionHandler.Create)
	mux.HandleFunc("GET /sessions/{id}", sessionHandler.Get)
	mux.HandleFunc("DELETE /sessions/{id}", sessionHandler.Delete)
	mux.HandleFunc("PATCH /sessions/{id}", sessionHandler.Update)
	mux.HandleFunc("PUT /sessions/{id}/start", sessionHandler.SetStart)

	mux.HandleFunc("POST /sessions/{id}/stops", sessionHandler.AddStop)
	mux.HandleFunc("PUT /sessions/{id}/stops/order", sessionHandler.Reorder)
	mux.HandleFunc("PATCH /sessions/{id}/stops/{stopID}", sessionHandler.UpdateStop)
	mux.HandleFunc("DELETE /sessions/{id}/stops/{stopID}", sessionHandler.RemoveStop)
	mux.HandleFunc("POST /sessions/{id}/stops/{stopID}/lock", sessionHandler.ToggleLock)

	mux.HandleFunc("POST /sessions/{id}/optimize", optimizeHandler.Optimize)
	mux.HandleFunc("GET /geocode/search", geocodeHandler.Search)

	return requestIDMiddleware(loggingMiddleware(mux))
}
