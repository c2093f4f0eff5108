package gitlab

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RetryPolicy wraps idempotent API calls with exponential-backoff retry on
// rate-limit and transient failures. The policy itself is stateless across
// calls; the attempt counter is local to each Do invocation, so workers back
// off independently of one another.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// BaseDelay seeds the exponential backoff: delay = BaseDelay * 2^attempt.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff.
	MaxDelay time.Duration

	// Log receives one event per backoff and per exhaustion.
	Log zerolog.Logger
}

// NewRetryPolicy returns a policy with the given retry budget and the
// default backoff curve (1s, 2s, 4s, ... capped at 30s).
func NewRetryPolicy(maxRetries int, log zerolog.Logger) *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Log:        log,
	}
}

// Do runs op until it succeeds, fails permanently, or the retry budget is
// spent. It returns how many attempts were made alongside the final error.
//
// A server Retry-After hint takes precedence over the computed delay.
// Exhaustion wraps ErrRetryExhausted; use Classify on the returned error to
// distinguish rate-limit from network exhaustion.
func (p *RetryPolicy) Do(ctx context.Context, op func() error) (attempts int, err error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		attempts = attempt + 1
		lastErr = op()
		if lastErr == nil {
			if attempt > 0 {
				p.Log.Info().Int("attempts", attempts).Msg("request succeeded after retry")
			}
			return attempts, nil
		}

		class := Classify(lastErr)
		if !class.Retryable() {
			return attempts, lastErr
		}
		if attempt >= p.MaxRetries {
			break
		}

		delay := p.backoff(attempt)
		if hint, ok := RetryAfterHint(lastErr); ok {
			delay = hint
		}

		p.Log.Warn().
			Str("error_class", string(class)).
			Int("attempt", attempts).
			Dur("backoff", delay).
			Msg("retrying after backoff")

		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		case <-time.After(delay):
		}
	}

	p.Log.Warn().
		Str("error_class", string(Classify(lastErr))).
		Int("attempts", attempts).
		Msg("retry attempts exhausted")

	return attempts, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, lastErr)
}

func (p *RetryPolicy) backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 1 * time.Second
	}
	delay := base << uint(attempt)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}
