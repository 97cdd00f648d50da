package guardian

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/fallenangelsystems/guardian-go/internal/governance"
	"github.com/fallenangelsystems/guardian-go/pkg/isolation"
	"github.com/fallenangelsystems/guardian-go/pkg/telemetry"
)

const (
	// DefaultBaseURL is the production scanning service endpoint.
	DefaultBaseURL = "https://api.fallenangelsystems.com"
	// DefaultTimeout bounds each operation, including all retries.
	DefaultTimeout = 30 * time.Second
	// DefaultVersion selects the v2 engine with per-layer sub-verdicts.
	DefaultVersion = "v2"
	// DefaultBatchWorkers bounds concurrent dispatch inside ScanBatch.
	DefaultBatchWorkers = 8

	userAgent = "guardian-go/" + Version
)

// Version is the SDK version reported in the User-Agent header.
const Version = "1.0.0"

// Client talks to the Guardian scanning service. All configuration is fixed
// at construction; reconfiguring requires a new Client.
type Client struct {
	apiKey       string
	baseURL      string
	version      string
	timeout      time.Duration
	httpClient   *http.Client
	retry        *governance.Policy
	throttle     *governance.Throttle
	logger       *slog.Logger
	metrics      *Metrics
	isolator     *isolation.Engine
	isolationCfg *isolation.Config
	batchWorkers int
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithBaseURL overrides the service endpoint, e.g. for a staging deployment.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithVersion sets the default engine version ("v1" or "v2").
func WithVersion(v string) Option {
	return func(c *Client) { c.version = v }
}

// WithTimeout sets the per-operation timeout budget, covering all retries.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient substitutes the underlying HTTP client. The caller owns
// transport-level concerns (proxies, TLS, instrumentation) when set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryConfig overrides the retry schedule for transient failures.
func WithRetryConfig(cfg governance.RetryConfig) Option {
	return func(c *Client) { c.retry = governance.NewPolicy(cfg) }
}

// WithLogger attaches a structured logger for attempt and retry debugging.
// The client never logs scanned text or the API key.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics attaches a metrics collector recording scan outcomes.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithAdTags overrides the ad-isolation dialect configuration, e.g. to
// register custom tag names.
func WithAdTags(cfg isolation.Config) Option {
	return func(c *Client) { c.isolationCfg = &cfg }
}

// WithIsolationConfig is an alias for WithAdTags kept for discoverability.
func WithIsolationConfig(cfg isolation.Config) Option { return WithAdTags(cfg) }

// WithBatchWorkers bounds the number of concurrent scans ScanBatch issues.
func WithBatchWorkers(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batchWorkers = n
		}
	}
}

// WithRequestsPerSecond throttles outbound requests across all operations
// on this client, primarily to keep large batches under the server's quota.
// Zero disables throttling.
func WithRequestsPerSecond(rps int) Option {
	return func(c *Client) { c.throttle = governance.NewThrottle(rps, rps) }
}

// New constructs a Client for the given API key.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, &AuthenticationError{Message: "API key is required"}
	}

	c := &Client{
		apiKey:       apiKey,
		baseURL:      DefaultBaseURL,
		version:      DefaultVersion,
		timeout:      DefaultTimeout,
		retry:        governance.NewPolicy(governance.DefaultRetryConfig()),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		batchWorkers: DefaultBatchWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.version != "v1" && c.version != "v2" {
		return nil, fmt.Errorf("%w: unsupported engine version %q", ErrInvalidInput, c.version)
	}
	if c.timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive", ErrInvalidInput)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	isolationCfg := isolation.DefaultConfig()
	if c.isolationCfg != nil {
		isolationCfg = *c.isolationCfg
	}
	engine, err := isolation.NewEngine(isolationCfg)
	if err != nil {
		return nil, err
	}
	c.isolator = engine

	return c, nil
}

// String renders the client with a masked API key, safe for logs.
func (c *Client) String() string {
	masked := "***"
	if len(c.apiKey) > 8 {
		masked = c.apiKey[:8] + "..."
	}
	return fmt.Sprintf("guardian.Client(api_key=%q, version=%q)", masked, c.version)
}

// scanOptions carries per-call overrides.
type scanOptions struct {
	version string
	timeout time.Duration
}

// ScanOption overrides client defaults for a single call.
type ScanOption func(*scanOptions)

// WithEngineVersion selects the engine version for this call only.
func WithEngineVersion(v string) ScanOption {
	return func(o *scanOptions) { o.version = v }
}

// WithScanTimeout overrides the timeout budget for this call only.
func WithScanTimeout(d time.Duration) ScanOption {
	return func(o *scanOptions) { o.timeout = d }
}

func (c *Client) applyScanOptions(opts []ScanOption) (scanOptions, error) {
	o := scanOptions{version: c.version, timeout: c.timeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.version != "v1" && o.version != "v2" {
		return o, fmt.Errorf("%w: unsupported engine version %q", ErrInvalidInput, o.version)
	}
	if o.timeout <= 0 {
		return o, fmt.Errorf("%w: timeout must be positive", ErrInvalidInput)
	}
	return o, nil
}

// Scan submits text to the scanning service and returns the parsed verdict.
// Counts against the caller's remote usage quota.
func (c *Client) Scan(ctx context.Context, text string, opts ...ScanOption) (*ScanResult, error) {
	o, err := c.applyScanOptions(opts)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%w: scan text must not be empty", ErrInvalidInput)
	}

	start := time.Now()
	body, attempts, err := c.do(ctx, http.MethodPost, "/"+o.version+"/scan", scanPayload{Text: text}, o.timeout)
	if err != nil {
		c.metrics.observeError("scan", err)
		return nil, err
	}

	result, err := parseScanResult(body)
	if err != nil {
		c.metrics.observeError("scan", err)
		return nil, err
	}
	c.metrics.observeScan("scan", result.Verdict, time.Since(start))
	telemetry.RecordScan(ctx, telemetry.ScanMetrics{
		Operation: "scan",
		Engine:    result.Engine,
		Verdict:   string(result.Verdict),
		Blocked:   result.Blocked,
		Duration:  time.Since(start),
		Retries:   attempts - 1,
	})
	telemetry.RecordScanEvent(trace.SpanFromContext(ctx), result.Blocked, string(result.Verdict), len(result.Threats))
	return result, nil
}

// Usage returns quota consumption for the client's API key.
func (c *Client) Usage(ctx context.Context) (*UsageInfo, error) {
	start := time.Now()
	body, _, err := c.do(ctx, http.MethodGet, "/v1/usage", nil, c.timeout)
	if err != nil {
		c.metrics.observeError("usage", err)
		return nil, err
	}

	var info UsageInfo
	if err := unmarshalResponse(body, &info); err != nil {
		c.metrics.observeError("usage", err)
		return nil, err
	}
	if info.ScansUsed < 0 || info.ScanLimit < 0 {
		err := fmt.Errorf("%w: negative usage counters in response", ErrService)
		c.metrics.observeError("usage", err)
		return nil, err
	}
	c.metrics.observeRequest("usage", time.Since(start))
	return &info, nil
}

// Health probes the remote service's health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthInfo, error) {
	body, _, err := c.do(ctx, http.MethodGet, "/"+c.version+"/health", nil, c.timeout)
	if err != nil {
		c.metrics.observeError("health", err)
		return nil, err
	}

	var info HealthInfo
	if err := unmarshalResponse(body, &info); err != nil {
		c.metrics.observeError("health", err)
		return nil, err
	}
	return &info, nil
}

// drainBody releases a response body so the connection can be reused.
func drainBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<16))
	_ = body.Close()
}
