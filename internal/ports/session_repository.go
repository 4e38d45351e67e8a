package ports

import (
	"context"
	"errors"
	"trip-optimizer-service/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// Port: a boundary for holding trip plan sessions.
type SessionRepository interface {
	Create(ctx context.Context) (string, *domain.TripPlan, error)
	Get(ctx context.Context, id string) (*domain.TripPlan, error)
	Delete(ctx context.Context, id string) error
}
