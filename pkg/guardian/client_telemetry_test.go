package guardian

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var otelReader *sdkmetric.ManualReader

// The scan meters resolve against the global provider once per process, so
// the test provider has to be installed before any client test scans.
func TestMain(m *testing.M) {
	otelReader = sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(otelReader)))
	os.Exit(m.Run())
}

// otelCounterTotal sums every data point of the named int64 counter. The
// manual reader is cumulative, so tests compare before/after deltas.
func otelCounterTotal(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, otelReader.Collect(context.Background(), &rm))

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestScan_RetriesReportedToTelemetry(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(scanBody("ALLOW", nil))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	before := otelCounterTotal(t, "guardian.retries_total")
	_, err := client.Scan(context.Background(), "text")
	require.NoError(t, err)

	assert.Equal(t, int64(1), otelCounterTotal(t, "guardian.retries_total")-before)
}

func TestScan_NoRetriesLeavesCounterUnchanged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(scanBody("ALLOW", nil))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	before := otelCounterTotal(t, "guardian.retries_total")
	_, err := client.Scan(context.Background(), "text")
	require.NoError(t, err)

	assert.Equal(t, int64(0), otelCounterTotal(t, "guardian.retries_total")-before)
}
