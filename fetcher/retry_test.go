package fetcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err       error
		retryable bool
	}{
		{nil, false},
		{errors.New("plain error"), false},
		{&FetchError{URL: "u", Err: errors.New("connection reset")}, true},
		{&FetchError{URL: "u", Err: context.Canceled}, false},
		{&FetchError{URL: "u", StatusCode: 429}, true},
		{&FetchError{URL: "u", StatusCode: 503}, true},
		{&FetchError{URL: "u", StatusCode: 404}, false},
		{&ParseError{URL: "u", Err: errors.New("bad xml")}, false},
		{fmt.Errorf("wrapped: %w", &FetchError{URL: "u", StatusCode: 502}), true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.err), func(t *testing.T) {
			got := isRetryable(tt.err)
			if got != tt.retryable {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

func TestRetryConfig_Next(t *testing.T) {
	config := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}

	if got := config.next(100 * time.Millisecond); got != 200*time.Millisecond {
		t.Errorf("expected doubling, got %v", got)
	}
	if got := config.next(200 * time.Millisecond); got != 300*time.Millisecond {
		t.Errorf("expected cap at MaxBackoff, got %v", got)
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 0 {
		t.Errorf("default must be a single attempt, got %d retries", config.MaxRetries)
	}
	if config.InitialBackoff <= 0 {
		t.Error("InitialBackoff should be positive")
	}
	if config.MaxBackoff <= config.InitialBackoff {
		t.Error("MaxBackoff should be greater than InitialBackoff")
	}
}

func TestSleep_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := sleep(ctx, 5*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("sleep ignored cancellation")
	}
}
