package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/turtlesoup/internal/errors"
)

// ErrInvocationFailure means the model could not be reached within the retry bound.
var ErrInvocationFailure = errors.NewSentinel("invocation failure")

// Retrying repeats a failed request with the identical input up to MaxRetries times. Each call gets its own Timeout,
// and a call that runs out of time counts as a failure like any other. Cancellation of the caller's context is never
// retried.
type Retrying struct {
	Invoker    Invoker
	MaxRetries int
	// Timeout bounds each call. Zero disables the per-call timeout.
	Timeout time.Duration
	// Logger receives a warning per failed attempt. Nil disables the warnings.
	Logger *slog.Logger
}

func (r Retrying) Invoke(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", errors.Wrap(err, "invocation cancelled")
		}
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if r.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		}
		response, err := r.Invoker.Invoke(callCtx, req)
		cancel()
		if err == nil {
			return response, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", errors.Wrap(ctxErr, "invocation cancelled")
		}
		lastErr = err
		if r.Logger != nil {
			r.Logger.LogAttrs(ctx, slog.LevelWarn, "invocation failed",
				slog.String("role", string(req.Role)), slog.Int("attempt", attempt+1), errors.SlogError(err))
		}
	}
	return "", errors.Wrap(fmt.Errorf("%w: %w", ErrInvocationFailure, lastErr), "invoke model",
		slog.String("role", string(req.Role)), slog.Int("attempts", r.MaxRetries+1))
}
