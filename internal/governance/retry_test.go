package governance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, 2*time.Second, cfg.MaxBackoff)
	assert.Equal(t, 2.0, cfg.BackoffMultiplier)
	assert.True(t, cfg.Jitter)
}

func TestBackoff_ExponentialAndCapped(t *testing.T) {
	policy := NewPolicy(RetryConfig{
		MaxRetries:        5,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            false,
	})

	assert.Equal(t, 100*time.Millisecond, policy.Backoff(0))
	assert.Equal(t, 200*time.Millisecond, policy.Backoff(1))
	assert.Equal(t, 400*time.Millisecond, policy.Backoff(2))
	assert.Equal(t, 2*time.Second, policy.Backoff(10), "backoff must be capped")
}

func TestBackoff_JitterBounds(t *testing.T) {
	policy := NewPolicy(RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	})

	for i := 0; i < 50; i++ {
		b := policy.Backoff(0)
		assert.GreaterOrEqual(t, b, 100*time.Millisecond)
		assert.LessOrEqual(t, b, 125*time.Millisecond, "jitter adds at most 25%")
	}
}

func TestExecute_SucceedsAfterTransientFailures(t *testing.T) {
	policy := NewPolicy(RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	})

	calls := 0
	err := policy.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("connection reset"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecute_NonTransientStopsImmediately(t *testing.T) {
	policy := NewPolicy(DefaultRetryConfig())

	fatal := errors.New("unauthorized")
	calls := 0
	err := policy.Execute(context.Background(), func(context.Context) error {
		calls++
		return fatal
	})
	require.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls, "non-transient errors must not be retried")
}

func TestExecute_ExhaustsAttemptBudget(t *testing.T) {
	policy := NewPolicy(RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        2 * time.Millisecond,
		BackoffMultiplier: 2.0,
	})

	underlying := errors.New("connection refused")
	calls := 0
	err := policy.Execute(context.Background(), func(context.Context) error {
		calls++
		return Transient(underlying)
	})
	require.ErrorIs(t, err, ErrBudgetExhausted)
	require.ErrorIs(t, err, underlying)
	assert.Equal(t, 3, calls, "MaxRetries=2 means 3 attempts total")
}

func TestExecute_RespectsDeadlineBeforeBackoff(t *testing.T) {
	policy := NewPolicy(RetryConfig{
		MaxRetries:        10,
		InitialBackoff:    time.Second,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 1.0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	calls := 0
	start := time.Now()
	err := policy.Execute(ctx, func(context.Context) error {
		calls++
		return Transient(errors.New("broken pipe"))
	})
	require.ErrorIs(t, err, ErrBudgetExhausted)
	assert.Equal(t, 1, calls, "no retry fits inside the remaining budget")
	assert.Less(t, time.Since(start), 500*time.Millisecond, "must abandon instead of sleeping past the deadline")
}

func TestExecute_ContextCancelled(t *testing.T) {
	policy := NewPolicy(DefaultRetryConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := policy.Execute(ctx, func(context.Context) error {
		t.Fatal("fn must not run after cancellation")
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestTransientClassification(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.Nil(t, Transient(nil))
	assert.False(t, IsTransient(errors.New("plain")))
	assert.True(t, IsTransient(Transient(errors.New("plain"))))

	wrapped := Transient(errors.New("inner"))
	assert.EqualError(t, wrapped, "inner")
}

func TestRetryableStatus(t *testing.T) {
	assert.True(t, RetryableStatus(500))
	assert.True(t, RetryableStatus(502))
	assert.True(t, RetryableStatus(503))
	assert.False(t, RetryableStatus(429), "rate limiting is never retried")
	assert.False(t, RetryableStatus(401))
	assert.False(t, RetryableStatus(404))
	assert.False(t, RetryableStatus(200))
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, IsConnectionError(errors.New("dial tcp: connection refused")))
	assert.True(t, IsConnectionError(errors.New("read: connection reset by peer")))
	assert.False(t, IsConnectionError(nil))
	assert.False(t, IsConnectionError(context.DeadlineExceeded))
	assert.False(t, IsConnectionError(errors.New("bad request")))
}
