package posting

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/postpilothq/postpilot/internal/domain"
)

const (
	maxRetries  = 2
	baseBackoff = 500 * time.Millisecond

	// Graph write limits are generous; this just keeps bursts polite.
	publishInterval = 500 * time.Millisecond
	publishBurst    = 2
)

// Client publishes one piece of content with resolved credentials.
type Client interface {
	Publish(ctx context.Context, creds *domain.PlatformCredentials, imageURL string, content *domain.PlatformContent) (postID string, err error)
}

// Executor resolves credentials, rate-limits, and publishes with a
// retry budget. Outcomes come back as data in the PostingResult, never
// as an error: each platform's failure is isolated from the others.
type Executor struct {
	resolver domain.CredentialResolver
	clients  map[domain.Platform]Client
	limiters map[domain.Platform]*rate.Limiter
}

// NewExecutor wires a resolver to per-platform publish clients.
func NewExecutor(resolver domain.CredentialResolver, clients map[domain.Platform]Client) *Executor {
	limiters := make(map[domain.Platform]*rate.Limiter, len(clients))
	for platform := range clients {
		limiters[platform] = rate.NewLimiter(rate.Every(publishInterval), publishBurst)
	}
	return &Executor{
		resolver: resolver,
		clients:  clients,
		limiters: limiters,
	}
}

// PostOne publishes content for a single platform. Missing or expired
// credentials short-circuit before any network call.
func (e *Executor) PostOne(ctx context.Context, userID uuid.UUID, platform domain.Platform, imageURL string, content *domain.PlatformContent) *domain.PostingResult {
	result := &domain.PostingResult{Platform: platform}

	client, ok := e.clients[platform]
	if !ok {
		result.ErrorKind = domain.FailurePosting
		result.Message = "no publish client configured for " + string(platform)
		return result
	}

	creds, err := e.resolver.Resolve(ctx, userID, platform)
	if err != nil {
		if errors.Is(err, domain.ErrNotConnected) {
			result.ErrorKind = domain.FailureCredentialsMissing
			result.Message = string(platform) + " account is not connected"
		} else {
			result.ErrorKind = domain.FailurePosting
			result.Message = "resolve credentials: " + err.Error()
		}
		return result
	}
	if !creds.Token.Valid() {
		result.ErrorKind = domain.FailureCredentialsMissing
		result.Message = string(platform) + " access token is missing or expired"
		return result
	}

	if limiter := e.limiters[platform]; limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			result.ErrorKind = domain.FailurePosting
			result.Message = "rate limit wait: " + err.Error()
			return result
		}
	}

	var postID string
	err = e.withRetry(ctx, platform, func(ctx context.Context) error {
		id, err := client.Publish(ctx, creds, imageURL, content)
		if err != nil {
			return err
		}
		postID = id
		return nil
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("platform", string(platform)).
			Str("user_id", userID.String()).
			Msg("posting.Executor.PostOne: publish failed")
		result.ErrorKind = domain.FailurePosting
		result.Message = err.Error()
		return result
	}

	result.Success = true
	result.PostID = postID
	return result
}

// withRetry runs fn up to maxRetries extra times with exponential
// backoff, retrying only transient failures.
func (e *Executor) withRetry(ctx context.Context, platform domain.Platform, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseBackoff << (attempt - 1)
			log.Debug().
				Str("platform", string(platform)).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("posting.Executor: retrying publish")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if domain.ClassOf(lastErr) != domain.ErrorTransient {
			return lastErr
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}
