package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"watchingcat/internal/metrics"
)

// Service is one entry of GET /api/services.
type Service struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Healthy bool   `json:"healthy"`
	Status  string `json:"status"`
}

// Metrics is the body of GET /api/metrics.
type Metrics struct {
	RequestRate  float64 `json:"request_rate"`
	ErrorRate    float64 `json:"error_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	P95LatencyMs float64 `json:"p95_latency_ms"`
}

// LogEntry is one entry of GET /api/logs. Timestamp is zero when the
// backend sent a value that could not be parsed.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Service   string    `json:"service"`
	Message   string    `json:"message"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// UnmarshalJSON decodes the timestamp per entry so one malformed value does
// not discard the whole log list.
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	type plain LogEntry
	var raw struct {
		plain
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = LogEntry(raw.plain)
	e.Timestamp = parseTimestamp(raw.Timestamp)
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts RFC 3339 strings, a few close variants and epoch
// milliseconds.
func parseTimestamp(raw json.RawMessage) time.Time {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		return time.Time{}
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(int64(ms)).UTC()
	}
	return time.Time{}
}

// LoadGenResponse is returned by the load generator control endpoints.
type LoadGenResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Rate    string `json:"rate,omitempty"`
}

// Load generator statuses reported by the backend.
const (
	LoadGenStarted = "started"
	LoadGenStopped = "stopped"
)

// StatusError reports a non-2xx answer from the backend.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client talks to the WatchingCat backend. It never retries; every call is
// bounded by the timeout given to New.
type Client struct {
	baseURL string
	http    *http.Client
	metrics *metrics.Metrics
}

// New creates a backend client rooted at baseURL.
func New(baseURL string, timeout time.Duration, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		metrics: m,
	}
}

// BaseURL returns the backend root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ============================================================
// Read endpoints
// ============================================================

// Services fetches the health of every demo service.
func (c *Client) Services(ctx context.Context) ([]Service, error) {
	var out []Service
	if err := c.do(ctx, http.MethodGet, "/api/services", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Metrics fetches the current aggregate request metrics.
func (c *Client) Metrics(ctx context.Context) (Metrics, error) {
	var out Metrics
	if err := c.do(ctx, http.MethodGet, "/api/metrics", &out); err != nil {
		return Metrics{}, err
	}
	return out, nil
}

// Logs fetches the most recent log lines.
func (c *Client) Logs(ctx context.Context) ([]LogEntry, error) {
	var out []LogEntry
	if err := c.do(ctx, http.MethodGet, "/api/logs", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health probes the backend's own health endpoint.
func (c *Client) Health(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// ============================================================
// Load generator control
// ============================================================

// StartLoadGen asks the backend to start the traffic generator.
func (c *Client) StartLoadGen(ctx context.Context) (LoadGenResponse, error) {
	var out LoadGenResponse
	if err := c.do(ctx, http.MethodPost, "/api/loadgen/start", &out); err != nil {
		return LoadGenResponse{}, err
	}
	return out, nil
}

// StopLoadGen asks the backend to stop the traffic generator.
func (c *Client) StopLoadGen(ctx context.Context) (LoadGenResponse, error) {
	var out LoadGenResponse
	if err := c.do(ctx, http.MethodPost, "/api/loadgen/stop", &out); err != nil {
		return LoadGenResponse{}, err
	}
	return out, nil
}

// ============================================================
// Helpers
// ============================================================

// do issues one request and decodes the JSON body into out.
func (c *Client) do(ctx context.Context, method, path string, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.metrics == nil {
			return
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		c.metrics.BackendRequests.WithLabelValues(path, outcome).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
