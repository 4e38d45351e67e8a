package routing

import (
	"context"
	"errors"
	"net"

	"trip-optimizer-service/internal/domain"
)

// classify maps a provider failure onto the error taxonomy.
// Anything not recognised is treated as an ambiguous, retryable bad response.
func classify(err error, provider string, attempt int) *domain.Error {
	if e, ok := domain.AsError(err); ok {
		out := *e
		if out.Provider == "" {
			out.Provider = provider
		}
		out.Attempt = attempt
		return &out
	}

	kind := domain.KindBadResponse
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = domain.KindTimeout
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			kind = domain.KindTimeout
		} else {
			kind = domain.KindNetwork
		}
	}

	return &domain.Error{Kind: kind, Provider: provider, Attempt: attempt, Err: err}
}
