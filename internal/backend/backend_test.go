package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchingcat/internal/metrics"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", time.Second, metrics.Discard())
}

func TestServices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/services", r.URL.Path)
		w.Write([]byte(`[{"name":"Frontend","url":"http://localhost:8080","healthy":true,"status":"healthy"},
			{"name":"Cart Service","url":"http://localhost:8081","healthy":false,"status":"unhealthy"}]`))
	})

	services, err := c.Services(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, Service{Name: "Frontend", URL: "http://localhost:8080", Healthy: true, Status: "healthy"}, services[0])
	assert.False(t, services[1].Healthy)
}

func TestMetrics(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"request_rate":142.7,"error_rate":0.0231,"avg_latency_ms":87,"p95_latency_ms":210,"total_requests":125000}`))
	})

	m, err := c.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Metrics{RequestRate: 142.7, ErrorRate: 0.0231, AvgLatencyMs: 87, P95LatencyMs: 210}, m)
}

func TestLogs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"timestamp":"2026-01-02T15:04:05Z","level":"error","service":"checkoutservice","message":"Payment processing failed","trace_id":"xyz789"},
			{"timestamp":"2026-01-02T15:05:05Z","level":"info","service":"frontend","message":"ok"}]`))
	})

	logs, err := c.Logs(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "xyz789", logs[0].TraceID)
	assert.Equal(t, time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC), logs[0].Timestamp)
	assert.Empty(t, logs[1].TraceID)
}

func TestLogsToleratesBadTimestamps(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"timestamp":"2026-01-02T15:04:05Z","level":"info","service":"frontend","message":"first"},
			{"timestamp":"yesterday","level":"warn","service":"cartservice","message":"second"},
			{"timestamp":1767366245000,"level":"info","service":"frontend","message":"third"},
			{"level":"error","service":"checkoutservice","message":"fourth"}]`))
	})

	logs, err := c.Logs(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 4)
	assert.Equal(t, time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC), logs[0].Timestamp)
	assert.True(t, logs[1].Timestamp.IsZero())
	assert.Equal(t, "second", logs[1].Message)
	assert.Equal(t, "cartservice", logs[1].Service)
	assert.Equal(t, time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC), logs[2].Timestamp)
	assert.True(t, logs[3].Timestamp.IsZero())
	assert.Equal(t, "error", logs[3].Level)
}

func TestLoadGenControl(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/api/loadgen/start" {
			w.Write([]byte(`{"status":"started","rate":"30 requests/min"}`))
			return
		}
		w.Write([]byte(`{"status":"stopped"}`))
	})

	started, err := c.StartLoadGen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LoadGenStarted, started.Status)
	assert.Equal(t, "30 requests/min", started.Rate)

	stopped, err := c.StopLoadGen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LoadGenStopped, stopped.Status)

	assert.Equal(t, []string{"/api/loadgen/start", "/api/loadgen/stop"}, paths)
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "jaeger down", http.StatusBadGateway)
	})

	_, err := c.Services(context.Background())
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Equal(t, "/api/services", se.Path)
	assert.Contains(t, err.Error(), "jaeger down")
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	})

	_, err := c.Metrics(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode GET /api/metrics")
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL, time.Second, nil)

	_, err := c.Logs(context.Background())
	assert.Error(t, err)
}

func TestContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Services(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status)
}
