package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trip-optimizer-service/internal/domain"
	"trip-optimizer-service/internal/ports"

	"github.com/google/uuid"
)

type sessionEntry struct {
	plan     *domain.TripPlan
	lastSeen time.Time
}

// In-memory implementation of the SessionRepository port.
// Trip plans are never written to durable storage.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	now      func() time.Time
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*sessionEntry),
		now:      time.Now,
	}
}

func (r *MemorySessionRepository) Create(_ context.Context) (string, *domain.TripPlan, error) {
	id := uuid.NewString()
	plan := domain.NewTripPlan()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &sessionEntry{plan: plan, lastSeen: r.now()}
	return id, plan, nil
}

func (r *MemorySessionRepository) Get(_ context.Context, id string) (*domain.TripPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("get session %q: %w", id, ports.ErrSessionNotFound)
	}
	e.lastSeen = r.now()
	return e.plan, nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("delete session %q: %w", id, ports.ErrSessionNotFound)
	}
	delete(r.sessions, id)
	return nil
}

// Sweep drops sessions idle for longer than maxIdle, skipping plans with an
// optimization in flight. It returns the number removed.
func (r *MemorySessionRepository) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	removed := 0
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) && !e.plan.Busy() {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (r *MemorySessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

var _ ports.SessionRepository = (*MemorySessionRepository)(nil)
