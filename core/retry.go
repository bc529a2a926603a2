package core

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryPolicy determines retry behavior for failed HTTP attempts.
//
// Retries only happen before a final response is known: once a stream body
// has started flowing to the caller nothing is retried.
type RetryPolicy interface {
	// NextDelay returns the delay before the next attempt and whether to retry.
	// attempt starts at 0 for the first retry after the initial failure.
	// status is the HTTP status of the failed attempt, or 0 when no response
	// was received, in which case err holds the transport error.
	NextDelay(attempt int, status int, err error) (delay time.Duration, ok bool)

	// MaxDelay bounds every wait between attempts, including one requested
	// by the server through Retry-After.
	MaxDelay() time.Duration
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts (default: 2)
	BaseDelay  time.Duration // Initial delay before first retry (default: 500ms)
	MaxDelay   time.Duration // Maximum delay cap, also applied to Backoff and Retry-After (default: 8s)
	Jitter     float64       // Jitter factor 0.0-1.0 (default: 0.2)

	// Backoff, when set, replaces the exponential schedule.
	Backoff func(attempt int) time.Duration
	// Retryable, when set, replaces IsRetryable.
	Retryable func(status int, err error) bool
}

// DefaultRetryPolicy returns a retry policy with sensible defaults.
// Uses exponential backoff with jitter, max 2 retries, 8s max delay.
func DefaultRetryPolicy() RetryPolicy {
	return NewRetryPolicy(RetryConfig{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   8 * time.Second,
		Jitter:     0.2,
	})
}

// NoRetry returns a policy that never retries.
func NoRetry() RetryPolicy {
	return noRetry{}
}

type noRetry struct{}

func (noRetry) NextDelay(int, int, error) (time.Duration, bool) { return 0, false }
func (noRetry) MaxDelay() time.Duration { return 0 }

// NewRetryPolicy creates a retry policy with the given configuration.
func NewRetryPolicy(cfg RetryConfig) RetryPolicy {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 8 * time.Second
	}
	if cfg.Jitter < 0 || cfg.Jitter > 1 {
		cfg.Jitter = 0.2
	}
	if cfg.Retryable == nil {
		cfg.Retryable = IsRetryable
	}
	return &exponentialBackoff{cfg: cfg}
}

type exponentialBackoff struct {
	cfg RetryConfig
}

func (e *exponentialBackoff) NextDelay(attempt int, status int, err error) (time.Duration, bool) {
	if attempt >= e.cfg.MaxRetries {
		return 0, false
	}
	if !e.cfg.Retryable(status, err) {
		return 0, false
	}
	if e.cfg.Backoff != nil {
		return min(e.cfg.Backoff(attempt), e.cfg.MaxDelay), true
	}

	// baseDelay * 2^attempt
	delay := float64(e.cfg.BaseDelay) * math.Pow(2, float64(attempt))

	// delay * (1 + random(-jitter, +jitter))
	if e.cfg.Jitter > 0 {
		jitterRange := delay * e.cfg.Jitter
		delay += (rand.Float64()*2 - 1) * jitterRange
	}

	if delay > float64(e.cfg.MaxDelay) {
		delay = float64(e.cfg.MaxDelay)
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay), true
}

func (e *exponentialBackoff) MaxDelay() time.Duration {
	return e.cfg.MaxDelay
}

// IsRetryable is the default retry predicate: transport failures other than
// cancellation, and the statuses 408, 409, 429 and 5xx.
func IsRetryable(status int, err error) bool {
	if status != 0 {
		return isRetryableStatus(status)
	}
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return true
	}
	return status >= 500 && status < 600
}
