// Package apierr holds the error vocabulary shared by the cloud speech
// backends. Each adapter classifies provider failures into these sentinels
// at its boundary, so callers only ever check errors.Is(err, apierr.ErrX).
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	// ErrRateLimit indicates the API rate limit was exceeded (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the API quota was exhausted (billing issue, not retryable).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a request timed out.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates the credential was rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a 4xx client error that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")

	// ErrServer indicates the provider answered with a 5xx status.
	ErrServer = errors.New("server error")

	// ErrNetwork indicates the provider could not be reached at all.
	ErrNetwork = errors.New("network error")
)

// FromStatus wraps msg with the sentinel matching an HTTP status code.
// Unknown statuses produce a plain error carrying the code.
func FromStatus(statusCode int, msg string) error {
	if msg == "" {
		msg = http.StatusText(statusCode)
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		// Quota exhaustion shares 429 with rate limiting but needs user action.
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "quota") || strings.Contains(lower, "billing") {
			return fmt.Errorf("%s: %w", msg, ErrQuotaExceeded)
		}
		return fmt.Errorf("%s: %w", msg, ErrRateLimit)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", msg, ErrAuthFailed)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w", msg, ErrTimeout)
	case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound,
		http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return fmt.Errorf("%s: %w", msg, ErrBadRequest)
	}

	if statusCode >= 500 {
		return fmt.Errorf("%s: %w", msg, ErrServer)
	}
	return fmt.Errorf("HTTP %d: %s", statusCode, msg)
}

// FromTransport classifies an error returned by an HTTP round trip
// (no response received). Context cancellation is returned untouched.
func FromTransport(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", ErrTimeout)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%v: %w", err, ErrTimeout)
	}
	return fmt.Errorf("%v: %w", err, ErrNetwork)
}

// IsTransient reports whether err describes a temporary service condition:
// rate limiting, timeouts, 5xx answers or an unreachable provider.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServer) ||
		errors.Is(err, ErrNetwork)
}
