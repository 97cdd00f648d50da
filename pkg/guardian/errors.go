package guardian

import (
	"errors"
	"fmt"
)

// Sentinel errors for the client error taxonomy. Callers can classify any
// error returned by the client with errors.Is against these, and recover
// structured detail (status, retry-after advisory) with errors.As against the
// wrapper types below.
var (
	// ErrInvalidInput indicates a local precondition violation (e.g. empty
	// scan text) detected before any network call.
	ErrInvalidInput = errors.New("guardian: invalid input")
	// ErrAuthentication indicates the server rejected the API key.
	ErrAuthentication = errors.New("guardian: authentication failed")
	// ErrRateLimited indicates the server signalled quota exhaustion.
	ErrRateLimited = errors.New("guardian: rate limit exceeded")
	// ErrTimeout indicates the retry budget was exhausted without a
	// successful response.
	ErrTimeout = errors.New("guardian: request timed out")
	// ErrService indicates any other non-success server response.
	ErrService = errors.New("guardian: service error")
)

// AuthenticationError carries the server detail for a rejected credential.
// Never retried by the client.
type AuthenticationError struct {
	Status  int
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("guardian: authentication failed (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("guardian: authentication failed (%d)", e.Status)
}

func (e *AuthenticationError) Unwrap() error { return ErrAuthentication }

// RateLimitError carries the server's Retry-After advisory in seconds.
// The client never retries on its own; retry timing is left to the caller.
type RateLimitError struct {
	// RetryAfter is the advisory delay in seconds, taken verbatim from the
	// server. Zero when the server sent no advisory.
	RetryAfter float64
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("guardian: rate limit exceeded, retry after %gs: %s", e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("guardian: rate limit exceeded: %s", e.Message)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// ServiceError carries the status and server-provided detail for any
// non-success response that is not an authentication or rate-limit failure.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("guardian: service error (%d): %s", e.Status, e.Message)
}

func (e *ServiceError) Unwrap() error { return ErrService }
