package dispatch

import (
	"context"
	"math/rand"
	"time"

	"github.com/spoj/mq-mcp/internal/qerr"
)

// RetryPolicy governs how the dispatcher retries transient failures.
// The zero value is unusable; use DefaultRetryPolicy or fill all
// fields.
type RetryPolicy struct {
	// MaxAttempts bounds total tries, including the first.
	MaxAttempts int

	// BaseDelay is the first backoff delay; it doubles per attempt.
	BaseDelay time.Duration

	// Jitter perturbs a computed delay. Defaults to up to +50%.
	Jitter func(time.Duration) time.Duration

	// Retryable decides whether an error is worth another attempt.
	Retryable func(error) bool
}

// DefaultRetryPolicy retries rate-limit errors up to maxAttempts with
// exponential backoff starting at baseDelay.
func DefaultRetryPolicy(maxAttempts int, baseDelay time.Duration) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Jitter:      defaultJitter,
		Retryable:   qerr.IsRetryable,
	}
}

// defaultJitter adds up to 50% on top of the computed delay.
func defaultJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}

// Do runs fn until it succeeds, returns a terminal error, or attempts
// are exhausted. Between attempts it sleeps with exponential backoff
// and jitter, honoring ctx cancellation.
func (p RetryPolicy) Do(ctx context.Context, fn func() (string, error)) (string, error) {
	var last error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return "", err
		}
		last = err

		if attempt == p.MaxAttempts-1 {
			break
		}

		delay := p.BaseDelay * time.Duration(1<<attempt)
		if p.Jitter != nil {
			delay = p.Jitter(delay)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", last
}
