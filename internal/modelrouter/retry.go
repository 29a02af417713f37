package modelrouter

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/corvid-review/corvid/internal/corverr"
)

// RetryConfig configures the retry/backoff state machine wrapping a
// ModelClient call. Backoff is jittered and applied per-call rather than
// across a shared provider state.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryConfig is the stock three-attempt policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: time.Second}
}

// Do retries fn according to the error taxonomy:
//   - corverr.RateLimit: exponential backoff (base * 2^attempt) with jitter,
//     up to MaxRetries.
//   - corverr.Transport (server-side failure): linear backoff (base), up to
//     MaxRetries.
//   - corverr.ModelClientFail (non-retriable 4xx): surfaced immediately,
//     zero retries.
//   - any other error: retried once, then surfaced.
//   - a nil error returns immediately.
func Do(ctx context.Context, cfg RetryConfig, fn func(attempt int) (string, error)) (string, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err := fn(attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if errors.Is(err, corverr.ModelClientFail) {
			return "", lastErr
		}

		if attempt == maxRetries-1 {
			break
		}

		var wait time.Duration
		switch {
		case errors.Is(err, corverr.RateLimit):
			wait = jittered(cfg.BaseDelay * (1 << attempt))
		case errors.Is(err, corverr.Transport):
			wait = cfg.BaseDelay
		default:
			// Unclassified errors get exactly one retry: only back off once,
			// then let the loop's last-attempt check surface the error.
			if attempt >= 1 {
				return "", lastErr
			}
			wait = cfg.BaseDelay
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		}
	}

	return "", lastErr
}

func jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	jitter := time.Duration(rand.Float64() * 0.25 * float64(d))
	return d + jitter
}
