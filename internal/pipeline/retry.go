package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/postpilothq/postpilot/internal/domain"
)

const (
	// Two additional attempts after the first failure.
	maxRetries  = 2
	baseBackoff = 500 * time.Millisecond
)

// withRetry runs fn up to maxRetries+1 times with exponential backoff.
// Only transient failures are retried; permanent failures and context
// cancellation return immediately.
func withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseBackoff << (attempt - 1)
			log.Debug().
				Str("op", op).
				Int("attempt", attempt+1).
				Dur("backoff", delay).
				Msg("pipeline.withRetry: retrying after transient failure")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if domain.ClassOf(err) != domain.ErrorTransient {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}
