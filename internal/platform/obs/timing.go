package obs

import (
	"context"
	"log/slog"
	"time"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// WithRequestID stores a request id for Time and Logger to pick up.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// Logger returns the default logger annotated with the request id, if any.
func Logger(ctx context.Context) *slog.Logger {
	if id := RequestID(ctx); id != "" {
		return slog.Default().With("req_id", id)
	}
	return slog.Default()
}

// Time logs the duration of an operation. Use as:
//
//	defer obs.Time(ctx, "op")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	return timed(ctx, name, slog.LevelWarn)
}

// TimeAttempt is Time for a single attempt that the caller retries and
// reports on as a whole: failures are logged at debug level.
func TimeAttempt(ctx context.Context, name string) func(errp *error) {
	return timed(ctx, name, slog.LevelDebug)
}

func timed(ctx context.Context, name string, failLevel slog.Level) func(errp *error) {
	start := time.Now()
	logger := Logger(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			logger.Log(ctx, failLevel, "op failed", "op", name, "dur_ms", dur.Milliseconds(), "err", *errp)
			return
		}
		logger.Debug("op done", "op", name, "dur_ms", dur.Milliseconds())
	}
}
