package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"trip-optimizer-service/internal/api/dto"
	"trip-optimizer-service/internal/domain"
	"trip-optimizer-service/internal/ports"
	"trip-optimizer-service/internal/services"
)

// Optimizer runs one optimization over a trip plan.
type Optimizer interface {
	Run(ctx context.Context, plan *domain.TripPlan, progress services.ProgressFunc) (*services.OptimizationResult, error)
}

type OptimizeHandler struct {
	Repo      ports.SessionRepository
	Optimizer Optimizer
	// Deadline for one run. Zero means the request context alone bounds it.
	Timeout time.Duration
}

// Optimize runs the optimization pipeline for a session and returns the
// suggested order. The plan's stop order is left as it was.
func (h *OptimizeHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Repo.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var (
		mu     sync.Mutex
		phases []string
	)
	progress := func(phase string) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, phase)
	}

	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	res, err := h.Optimizer.Run(ctx, plan, progress)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	mu.Lock()
	reached := append([]string(nil), phases...)
	mu.Unlock()

	writeJSON(w, r, http.StatusOK, dto.OptimizeResponse{
		Start:               dto.NewPlaceResponse(res.Start),
		OptimizedOrder:      dto.NewStopResponses(res.OptimizedOrder),
		OptimizedRoute:      dto.NewRouteResponse(res.OptimizedRoute),
		OriginalRoute:       dto.NewRouteResponse(res.OriginalRoute),
		TimeSavedSeconds:    res.TimeSavedSeconds,
		TotalDistanceMeters: res.TotalDistanceMeters,
		Estimated:           res.OptimizedRoute.Estimated || res.OriginalRoute.Estimated,
		ReturnToStart:       res.ReturnToStart,
		Phases:              reached,
		MapURL:              res.MapURL,
	})
}
