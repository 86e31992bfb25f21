package fetcher

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// RetryConfig configures how often a failed download is repeated.
// The zero value performs a single attempt.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns a single-attempt policy with sane backoff
// bounds for when retries are switched on
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     0,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// next returns the backoff to wait after the current one
func (c RetryConfig) next(current time.Duration) time.Duration {
	next := current * 2
	if c.MaxBackoff > 0 && next > c.MaxBackoff {
		return c.MaxBackoff
	}
	return next
}

// isRetryable reports whether repeating the request may succeed:
// transport failures, rate limiting and server errors
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		return false
	}
	switch {
	case fetchErr.StatusCode == 0:
		return true
	case fetchErr.StatusCode == http.StatusTooManyRequests:
		return true
	case fetchErr.StatusCode >= 500:
		return true
	}
	return false
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
