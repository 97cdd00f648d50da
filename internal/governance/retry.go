package governance

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrBudgetExhausted is returned when all retry attempts have been used
	// or the remaining timeout budget cannot accommodate another attempt.
	ErrBudgetExhausted = errors.New("governance: retry budget exhausted")
)

// RetryConfig defines retry behavior for requests to the scanning service.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (0 = no retries).
	MaxRetries int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration
	// BackoffMultiplier is the factor by which backoff increases.
	BackoffMultiplier float64
	// Jitter adds up to 25% randomness to each backoff to prevent
	// synchronized retry storms.
	Jitter bool
}

// DefaultRetryConfig returns the retry schedule the client ships with:
// 3 retries, 100ms initial backoff, doubling, capped at 2s, with jitter.
// The schedule is sized so a full retry cycle fits well inside the default
// 30s request budget.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// transientError marks an error as retryable. Errors not wrapped with
// Transient stop the retry loop on first occurrence.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so the retry policy treats it as a transient fault.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked retryable via Transient.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// RetryableStatus reports whether an HTTP status code represents a transient
// server fault. Rate limiting (429) is deliberately excluded: quota
// exhaustion is not a fault the client can paper over.
func RetryableStatus(status int) bool {
	if status == http.StatusTooManyRequests {
		return false
	}
	return status >= 500 && status <= 599
}

// IsConnectionError reports whether err looks like a connection-level
// transport failure worth retrying.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	errStr := err.Error()
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"EOF",
		"temporary failure",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// Policy executes functions under the configured retry schedule.
type Policy struct {
	config RetryConfig
}

// NewPolicy creates a retry policy, filling zero fields with defaults.
func NewPolicy(config RetryConfig) *Policy {
	def := DefaultRetryConfig()
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = def.InitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = def.MaxBackoff
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = def.BackoffMultiplier
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &Policy{config: config}
}

// Config returns a copy of the policy's configuration.
func (p *Policy) Config() RetryConfig {
	return p.config
}

// Backoff returns the delay before retry number attempt (0-based).
func (p *Policy) Backoff(attempt int) time.Duration {
	backoff := time.Duration(float64(p.config.InitialBackoff) * math.Pow(p.config.BackoffMultiplier, float64(attempt)))
	if backoff > p.config.MaxBackoff {
		backoff = p.config.MaxBackoff
	}
	if p.config.Jitter && backoff > 0 {
		// #nosec G404 - non-cryptographic random is fine for jitter
		backoff += time.Duration(rand.Int63n(int64(backoff/4) + 1))
	}
	return backoff
}

// Execute runs fn until it succeeds, returns a non-transient error, or the
// retry budget runs out. The budget is both attempt-bounded (MaxRetries) and
// time-bounded: if the context deadline would expire before the next backoff
// completes, Execute abandons further attempts and returns the last error
// wrapped in ErrBudgetExhausted.
func (p *Policy) Execute(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt >= p.config.MaxRetries {
			return errors.Join(ErrBudgetExhausted, lastErr)
		}

		backoff := p.Backoff(attempt)
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < backoff {
			// The remaining budget cannot fit another attempt.
			return errors.Join(ErrBudgetExhausted, lastErr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}
