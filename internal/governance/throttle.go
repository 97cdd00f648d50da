package governance

import (
	"context"
	"sync"
	"time"
)

// Throttle is a token-bucket limiter used to bound the request rate a batch
// scan imposes on the remote service. A nil *Throttle is valid and never
// delays.
type Throttle struct {
	mu         sync.Mutex
	rate       float64 // tokens per second
	capacity   float64 // maximum burst size
	tokens     float64
	lastRefill time.Time
}

// NewThrottle creates a throttle allowing rps requests per second with the
// given burst size. Returns nil (no throttling) when rps <= 0.
func NewThrottle(rps, burst int) *Throttle {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = rps
	}
	return &Throttle{
		rate:       float64(rps),
		capacity:   float64(burst),
		tokens:     float64(burst),
		lastRefill: time.Now(),
	}
}

// Allow consumes a token if one is available.
func (t *Throttle) Allow() bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refill()
	if t.tokens >= 1 {
		t.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.Allow() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.nextToken()):
		}
	}
}

// nextToken returns the time until one token accrues.
func (t *Throttle) nextToken() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refill()
	if t.tokens >= 1 {
		return 0
	}
	return time.Duration((1 - t.tokens) / t.rate * float64(time.Second))
}

// refill adds tokens accrued since the last refill. Callers must hold mu.
func (t *Throttle) refill() {
	now := time.Now()
	elapsed := now.Sub(t.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	t.tokens += elapsed * t.rate
	if t.tokens > t.capacity {
		t.tokens = t.capacity
	}
	t.lastRefill = now
}
