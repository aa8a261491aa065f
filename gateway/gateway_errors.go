package gateway

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrRefreshFailed  = errors.New("token refresh failed")
)

// NetworkError wraps a transport-level failure (DNS, timeout, connection
// reset). The request never produced an HTTP status.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError is an authentication failure reported by the backend (401/403).
// A 401 is only surfaced after the single refresh-and-replay attempt has
// been exhausted.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed with status %d", e.StatusCode)
}

// RateLimitError is a 429 response. No automatic retry is attempted.
type RateLimitError struct {
	RetryAfter time.Duration // zero when the server sent no Retry-After
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// APIError is any other non-2xx response, passed through unchanged.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// ValidationError reports a response body that did not match the expected
// shape.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid response: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }
