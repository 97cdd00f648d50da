package guardian

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fallenangelsystems/guardian-go/internal/governance"
	"github.com/fallenangelsystems/guardian-go/pkg/telemetry"
)

// scanPayload is the request body for scan operations.
type scanPayload struct {
	Text string `json:"text"`
}

// errorPayload mirrors the service's error body shape.
type errorPayload struct {
	Detail string `json:"detail"`
}

// do executes one logical request under the retry policy and the timeout
// budget, returning the response body and the number of attempts made.
// Authentication and rate-limit responses are surfaced immediately;
// connection errors and 5xx responses are retried until the budget runs out.
func (c *Client) do(ctx context.Context, method, path string, payload any, timeout time.Duration) ([]byte, int, error) {
	var encoded []byte
	if payload != nil {
		var err error
		encoded, err = json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("guardian: encode request: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body []byte
	attempts := 0
	err := c.retry.Execute(ctx, func(ctx context.Context) error {
		attempts++
		if attempts > 1 {
			c.metrics.observeRetry()
		}
		if err := c.throttle.Wait(ctx); err != nil {
			return err
		}
		var attemptErr error
		body, attemptErr = c.attempt(ctx, method, path, encoded)
		return attemptErr
	})
	if err == nil {
		return body, attempts, nil
	}

	c.logger.DebugContext(ctx, "request failed",
		"method", method, "path", path, "attempts", attempts, "error", err)

	switch {
	case errors.Is(err, context.Canceled):
		return nil, attempts, err
	case errors.Is(err, governance.ErrBudgetExhausted), errors.Is(err, context.DeadlineExceeded):
		return nil, attempts, fmt.Errorf("%w after %d attempts: %v", ErrTimeout, attempts, err)
	default:
		return nil, attempts, err
	}
}

// attempt performs a single HTTP exchange and classifies the outcome.
func (c *Client) attempt(ctx context.Context, method, path string, encoded []byte) ([]byte, error) {
	var reqBody io.Reader
	if encoded != nil {
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("guardian: build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if encoded != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		err = fmt.Errorf("guardian: request failed: %w", err)
		// Only connection-level failures are retried; anything else at the
		// transport layer (bad scheme, TLS handshake rejection) will fail
		// the same way on every attempt.
		if governance.IsConnectionError(err) {
			return nil, governance.Transient(err)
		}
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, governance.Transient(fmt.Errorf("guardian: read response: %w", readErr))
		}
		return body, nil
	}

	detail := readErrorDetail(resp.Body)
	drainBody(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthenticationError{Status: resp.StatusCode, Message: detail}
	case resp.StatusCode == http.StatusTooManyRequests:
		c.metrics.observeRateLimited()
		telemetry.RecordRateLimited(ctx, path)
		return nil, &RateLimitError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    detail,
		}
	case governance.RetryableStatus(resp.StatusCode):
		return nil, governance.Transient(&ServiceError{Status: resp.StatusCode, Message: detail})
	default:
		return nil, &ServiceError{Status: resp.StatusCode, Message: detail}
	}
}

// readErrorDetail extracts the service's error detail, falling back to the
// raw body when it is not the expected JSON shape.
func readErrorDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 8<<10))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload errorPayload
	if json.Unmarshal(raw, &payload) == nil && payload.Detail != "" {
		return payload.Detail
	}
	return string(bytes.TrimSpace(raw))
}

// parseRetryAfter parses the server's advisory delay in seconds. The value
// is passed through verbatim; zero means no advisory was sent.
func parseRetryAfter(header string) float64 {
	if header == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}
