package apierr_test

// Notes:
// - Retry behaviour is observed through call counts; backoff timing is not asserted.
// - shouldRetry is apierr.IsTransient in most cases since that is how the
//   cloud backends drive it.

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alexandervashurin/speech-to-text-telegram-bot/internal/apierr"
)

func fastRetry(n int) apierr.RetryConfig {
	return apierr.RetryConfig{MaxRetries: n, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

// ---------------------------------------------------------------------------
// TestRetryWithBackoff - call counting
// ---------------------------------------------------------------------------

func TestRetryWithBackoff(t *testing.T) {
	t.Parallel()

	transient := fmt.Errorf("503: %w", apierr.ErrServer)
	permanent := fmt.Errorf("401: %w", apierr.ErrAuthFailed)

	tests := []struct {
		name      string
		cfg       apierr.RetryConfig
		failures  []error // returned in order, then success
		wantCalls int
		wantErr   error
	}{
		{"success first try", fastRetry(5), nil, 1, nil},
		{"transient then success", fastRetry(3), []error{transient, transient}, 3, nil},
		{"permanent stops at once", fastRetry(5), []error{permanent}, 1, apierr.ErrAuthFailed},
		{"transient then permanent", fastRetry(5), []error{transient, permanent}, 2, apierr.ErrAuthFailed},
		{"budget exhausted wraps last", fastRetry(2), []error{transient, transient, transient, transient}, 3, apierr.ErrServer},
		{"zero retries single attempt", fastRetry(0), []error{transient}, 1, apierr.ErrServer},
		{"negative retries normalized", apierr.RetryConfig{MaxRetries: -3}, []error{transient}, 1, apierr.ErrServer},
		{"zero delays normalized", apierr.RetryConfig{MaxRetries: 1}, []error{transient}, 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			got, err := apierr.RetryWithBackoff(context.Background(), tt.cfg,
				func() (string, error) {
					calls++
					if calls <= len(tt.failures) {
						return "", tt.failures[calls-1]
					}
					return "text", nil
				},
				apierr.IsTransient,
			)

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != "text" {
					t.Errorf("got %q, want %q", got, "text")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want errors.Is %v", err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRetryWithBackoff_Context
// ---------------------------------------------------------------------------

func TestRetryWithBackoff_Context(t *testing.T) {
	t.Parallel()

	t.Run("cancelled before first wait", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		_, err := apierr.RetryWithBackoff(ctx,
			apierr.RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Minute},
			func() (int, error) {
				calls++
				return 0, apierr.ErrRateLimit
			},
			apierr.IsTransient,
		)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		calls := 0
		_, err := apierr.RetryWithBackoff(ctx,
			apierr.RetryConfig{MaxRetries: 10, BaseDelay: 50 * time.Millisecond, MaxDelay: 100 * time.Millisecond},
			func() (int, error) {
				calls++
				if calls == 1 {
					time.AfterFunc(5*time.Millisecond, cancel)
				}
				return 0, apierr.ErrTimeout
			},
			apierr.IsTransient,
		)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if calls >= 5 {
			t.Errorf("calls = %d, want < 5", calls)
		}
	})
}

// ---------------------------------------------------------------------------
// TestDefaultRetryConfig
// ---------------------------------------------------------------------------

func TestDefaultRetryConfig(t *testing.T) {
	t.Parallel()

	cfg := apierr.DefaultRetryConfig()
	if cfg.MaxRetries < 1 {
		t.Errorf("MaxRetries = %d, want >= 1", cfg.MaxRetries)
	}
	if cfg.BaseDelay <= 0 || cfg.MaxDelay < cfg.BaseDelay {
		t.Errorf("delays = %v/%v, want 0 < base <= max", cfg.BaseDelay, cfg.MaxDelay)
	}
}
