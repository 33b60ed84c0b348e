package dashboard

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchingcat/internal/backend"
	"watchingcat/internal/charts"
	"watchingcat/internal/demo"
	"watchingcat/internal/state"
	"watchingcat/internal/view"
)

type fakeBackend struct {
	mu          sync.Mutex
	services    []backend.Service
	servicesErr error
	metrics     backend.Metrics
	metricsErr  error
	logs        []backend.LogEntry
	logsErr     error
	loadGen     func(ctx context.Context, start bool) (backend.LoadGenResponse, error)
}

func (f *fakeBackend) Services(context.Context) ([]backend.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.services, f.servicesErr
}

func (f *fakeBackend) Metrics(context.Context) (backend.Metrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metrics, f.metricsErr
}

func (f *fakeBackend) Logs(context.Context) ([]backend.LogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logs, f.logsErr
}

func (f *fakeBackend) StartLoadGen(ctx context.Context) (backend.LoadGenResponse, error) {
	return f.loadGen(ctx, true)
}

func (f *fakeBackend) StopLoadGen(ctx context.Context) (backend.LoadGenResponse, error) {
	return f.loadGen(ctx, false)
}

func (f *fakeBackend) setServicesErr(err error) {
	f.mu.Lock()
	f.servicesErr = err
	f.mu.Unlock()
}

func echoLoadGen(_ context.Context, start bool) (backend.LoadGenResponse, error) {
	if start {
		return backend.LoadGenResponse{Status: backend.LoadGenStarted}, nil
	}
	return backend.LoadGenResponse{Status: backend.LoadGenStopped}, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newController(t *testing.T, b *fakeBackend) (*Controller, *clock) {
	t.Helper()
	if b.loadGen == nil {
		b.loadGen = echoLoadGen
	}
	return newControllerFor(t, b)
}

func newControllerFor(t *testing.T, b Backend) (*Controller, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)}
	r, err := view.NewRenderer(time.UTC)
	require.NoError(t, err)
	c, err := New(b, state.New(100), Options{
		JaegerURL:  "http://jaeger:16686",
		SessionTTL: time.Hour,
		Generator:  demo.NewGenerator(11, clk.Now),
		Renderer:   r,
		Now:        clk.Now,
	})
	require.NoError(t, err)
	return c, clk
}

func healthyServices() []backend.Service {
	return []backend.Service{
		{Name: "frontend", URL: "http://frontend:8080", Healthy: true, Status: "ok"},
		{Name: "cartservice", URL: "http://cart:7070", Healthy: true, Status: "ok"},
	}
}

func region(t *testing.T, c *Controller, r state.Region) string {
	t.Helper()
	html, ok := c.State().Region(r)
	require.True(t, ok, "region %s not set", r)
	return html
}

// ============================================================
// Refresh cycle
// ============================================================

func TestRefreshPublishesRegions(t *testing.T) {
	b := &fakeBackend{
		services: healthyServices(),
		metrics:  backend.Metrics{RequestRate: 142.7, ErrorRate: 0.0231, AvgLatencyMs: 87, P95LatencyMs: 210},
		logs:     []backend.LogEntry{{Timestamp: time.Now(), Level: "info", Service: "frontend", Message: "hello"}},
	}
	c, _ := newController(t, b)

	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, 2, strings.Count(region(t, c, state.RegionServices), `class="service-card`))
	assert.Contains(t, region(t, c, state.RegionSystemStatus), "All Systems Operational")
	assert.Contains(t, region(t, c, state.RegionMetrics), ">2.31<")
	assert.Contains(t, region(t, c, state.RegionLogs), "hello")
	assert.Equal(t, "08:00:00", region(t, c, state.RegionLastUpdated))
	assert.False(t, c.State().Snapshot().LastRefresh.Running)
}

func TestFailedServicesAfterSuccessShowsSinglePlaceholder(t *testing.T) {
	b := &fakeBackend{services: healthyServices()}
	c, _ := newController(t, b)
	ctx := context.Background()

	require.NoError(t, c.UpdateServices(ctx))
	require.Equal(t, 2, strings.Count(region(t, c, state.RegionServices), `class="service-card`))

	b.setServicesErr(&backend.StatusError{Method: "GET", Path: "/api/services", Code: 502})
	err := c.UpdateServices(ctx)
	require.Error(t, err)
	var se *backend.StatusError
	assert.True(t, errors.As(err, &se))

	grid := region(t, c, state.RegionServices)
	assert.Equal(t, 1, strings.Count(grid, `class="service-card`))
	assert.Contains(t, grid, "Failed to fetch service status")
	assert.NotContains(t, grid, "frontend")
}

// newSlowBackend serves two healthy services; once slow is set every answer
// takes 200ms.
func newSlowBackend(t *testing.T, timeout time.Duration) (*backend.Client, *atomic.Bool) {
	t.Helper()
	slow := &atomic.Bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slow.Load() {
			select {
			case <-time.After(200 * time.Millisecond):
			case <-r.Context().Done():
				return
			}
		}
		switch r.URL.Path {
		case "/api/services":
			w.Write([]byte(`[{"name":"frontend","url":"http://frontend:8080","healthy":true,"status":"ok"},
				{"name":"cartservice","url":"http://cart:7070","healthy":true,"status":"ok"}]`))
		case "/api/metrics":
			w.Write([]byte(`{"request_rate":12.5}`))
		case "/api/logs":
			w.Write([]byte(`[]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return backend.New(srv.URL, timeout, nil), slow
}

func errorLogs(c *Controller) []state.LogEntry {
	var out []state.LogEntry
	for _, e := range c.State().Snapshot().Logs {
		if e.Level == "ERROR" {
			out = append(out, e)
		}
	}
	return out
}

func TestAbandonedRequestKeepsSharedGrid(t *testing.T) {
	client, slow := newSlowBackend(t, time.Second)
	c, _ := newControllerFor(t, client)

	require.NoError(t, c.UpdateServices(context.Background()))
	require.Equal(t, 2, strings.Count(region(t, c, state.RegionServices), `class="service-card`))

	slow.Store(true)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Navigate(ctx, c.Session("a"), "dashboard")
	require.NoError(t, err)

	stopped, stop := context.WithCancel(context.Background())
	stop()
	assert.Error(t, c.Refresh(stopped))

	grid := region(t, c, state.RegionServices)
	assert.Equal(t, 2, strings.Count(grid, `class="service-card`))
	assert.NotContains(t, grid, "Failed to fetch service status")
	assert.Empty(t, errorLogs(c))
}

func TestBackendTimeoutShowsPlaceholder(t *testing.T) {
	client, slow := newSlowBackend(t, 20*time.Millisecond)
	c, _ := newControllerFor(t, client)

	require.NoError(t, c.UpdateServices(context.Background()))
	slow.Store(true)

	require.Error(t, c.UpdateServices(context.Background()))
	grid := region(t, c, state.RegionServices)
	assert.Equal(t, 1, strings.Count(grid, `class="service-card`))
	assert.Contains(t, grid, "Failed to fetch service status")
	assert.NotEmpty(t, errorLogs(c))
}

func TestFailedMetricsLeavesRegionStale(t *testing.T) {
	b := &fakeBackend{metrics: backend.Metrics{RequestRate: 10}}
	c, _ := newController(t, b)
	ctx := context.Background()

	require.NoError(t, c.UpdateMetrics(ctx))
	before := region(t, c, state.RegionMetrics)

	b.mu.Lock()
	b.metricsErr = errors.New("connection refused")
	b.mu.Unlock()
	assert.Error(t, c.UpdateMetrics(ctx))
	assert.Equal(t, before, region(t, c, state.RegionMetrics))

	logs := c.State().Snapshot().Logs
	require.NotEmpty(t, logs)
	assert.Equal(t, "ERROR", logs[len(logs)-1].Level)
	assert.Contains(t, logs[len(logs)-1].Message, "connection refused")
}

func TestRefreshJoinsErrors(t *testing.T) {
	b := &fakeBackend{
		servicesErr: errors.New("services down"),
		logsErr:     errors.New("logs down"),
	}
	c, _ := newController(t, b)

	err := c.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "services down")
	assert.Contains(t, err.Error(), "logs down")
	assert.Contains(t, region(t, c, state.RegionServices), "Check services")
}

// ============================================================
// Load generator
// ============================================================

func TestLoadGenToggle(t *testing.T) {
	c, _ := newController(t, &fakeBackend{})
	ctx := context.Background()
	assert.Contains(t, region(t, c, state.RegionLoadGen), "--")

	res := c.StartLoadGen(ctx)
	require.NotNil(t, res.Toast)
	assert.Equal(t, view.Toast{Message: "Load generator started", Kind: view.ToastSuccess}, *res.Toast)
	assert.Contains(t, res.Regions[state.RegionLoadGen], "Running")

	res = c.StopLoadGen(ctx)
	assert.Equal(t, view.Toast{Message: "Load generator stopped", Kind: view.ToastInfo}, *res.Toast)
	assert.Contains(t, region(t, c, state.RegionLoadGen), "Stopped")
}

func TestLoadGenFailureOnlyToasts(t *testing.T) {
	b := &fakeBackend{loadGen: func(context.Context, bool) (backend.LoadGenResponse, error) {
		return backend.LoadGenResponse{}, errors.New("timeout")
	}}
	c, _ := newController(t, b)

	res := c.StartLoadGen(context.Background())
	assert.Equal(t, view.Toast{Message: "Failed to start load generator", Kind: view.ToastError}, *res.Toast)
	assert.Empty(t, res.Regions)
	assert.Equal(t, state.LoadGenUnknown, c.State().LoadGen())

	res = c.StopLoadGen(context.Background())
	assert.Equal(t, "Failed to stop load generator", res.Toast.Message)
}

func TestLoadGenLabelFollowsNewestIssuedCall(t *testing.T) {
	type call struct {
		entered chan struct{}
		release chan struct{}
	}
	calls := map[bool]*call{
		true:  {entered: make(chan struct{}), release: make(chan struct{})},
		false: {entered: make(chan struct{}), release: make(chan struct{})},
	}
	b := &fakeBackend{loadGen: func(ctx context.Context, start bool) (backend.LoadGenResponse, error) {
		cl := calls[start]
		close(cl.entered)
		<-cl.release
		return echoLoadGen(ctx, start)
	}}
	c, _ := newController(t, b)
	ctx := context.Background()

	results := make(chan Result, 2)
	go func() { results <- c.StartLoadGen(ctx) }()
	<-calls[true].entered
	go func() { results <- c.StopLoadGen(ctx) }()
	<-calls[false].entered

	// The newer stop answers first, then the older start.
	close(calls[false].release)
	stopRes := <-results
	close(calls[true].release)
	startRes := <-results

	assert.Contains(t, stopRes.Regions[state.RegionLoadGen], "Stopped")
	assert.Empty(t, startRes.Regions)
	assert.Equal(t, state.LoadGenStopped, c.State().LoadGen())
	assert.Contains(t, region(t, c, state.RegionLoadGen), "Stopped")
}

// ============================================================
// Navigation
// ============================================================

func TestNavigateUnknownPage(t *testing.T) {
	c, _ := newController(t, &fakeBackend{})
	s := c.Session("s1")

	_, err := c.Navigate(context.Background(), s, "settings")
	assert.ErrorIs(t, err, ErrUnknownPage)
	assert.Equal(t, PageDashboard, s.Page())
}

func TestNavigateDashboardReusesChartHandles(t *testing.T) {
	c, _ := newController(t, &fakeBackend{services: healthyServices()})
	s := c.Session("s1")
	ctx := context.Background()

	res, err := c.Navigate(ctx, s, "dashboard")
	require.NoError(t, err)
	assert.Equal(t, PageDashboard, res.Page)
	for _, r := range []state.Region{
		state.RegionSystemStatus, RegionTopology, RegionToolStats,
		ChartRegion(charts.SlotRequestVolume), ChartRegion(charts.SlotLatency),
	} {
		assert.Contains(t, res.Regions, r)
	}
	assert.Contains(t, res.Regions[RegionToolStats], "1,234")
	first, ok := s.Charts().Get(charts.SlotRequestVolume)
	require.True(t, ok)

	_, err = c.Navigate(ctx, s, "metrics")
	require.NoError(t, err)
	_, err = c.Navigate(ctx, s, "dashboard")
	require.NoError(t, err)

	again, ok := s.Charts().Get(charts.SlotRequestVolume)
	require.True(t, ok)
	assert.Same(t, first, again)
	assert.Equal(t, 5, s.Charts().Len())
}

func TestNavigateServicesFailure(t *testing.T) {
	c, _ := newController(t, &fakeBackend{servicesErr: errors.New("boom")})
	s := c.Session("s1")

	res, err := c.Navigate(context.Background(), s, "services")
	require.NoError(t, err)
	html := res.Regions[RegionServiceDetails]
	assert.Equal(t, 1, strings.Count(html, `class="service-card`))
	assert.Contains(t, html, "Check services")
}

func TestNavigateServices(t *testing.T) {
	c, _ := newController(t, &fakeBackend{services: healthyServices()})
	res, err := c.Navigate(context.Background(), c.Session("s1"), "services")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(res.Regions[RegionServiceDetails], `class="service-detail-card"`))
}

func TestTraceDetails(t *testing.T) {
	c, _ := newController(t, &fakeBackend{})
	s := c.Session("s1")

	_, err := c.TraceDetails(s, "missing")
	assert.ErrorIs(t, err, ErrTraceNotFound)

	res, err := c.Navigate(context.Background(), s, "traces")
	require.NoError(t, err)
	assert.Equal(t, 10, strings.Count(res.Regions[RegionTraces], `class="trace-item"`))

	s.mu.Lock()
	id := s.traces[3].ID
	s.mu.Unlock()
	html, err := c.TraceDetails(s, id)
	require.NoError(t, err)
	assert.Contains(t, html, "http://jaeger:16686/trace/"+id)
	assert.Equal(t, 4, strings.Count(html, `class="span-row"`))
}

func TestSearchTracesToast(t *testing.T) {
	c, _ := newController(t, &fakeBackend{})
	s := c.Session("s1")

	res, err := c.SearchTraces(s, "cartservice")
	require.NoError(t, err)
	assert.Equal(t, "Searching traces for cartservice...", res.Toast.Message)

	res, err = c.SearchTraces(s, "")
	require.NoError(t, err)
	assert.Equal(t, "Searching traces...", res.Toast.Message)
}

func TestSetTimeRangeMutatesHandleInPlace(t *testing.T) {
	c, _ := newController(t, &fakeBackend{})
	s := c.Session("s1")
	_, err := c.Navigate(context.Background(), s, "dashboard")
	require.NoError(t, err)
	h, _ := s.Charts().Get(charts.SlotRequestVolume)
	rev := h.Revision()

	res, err := c.SetTimeRange(s, "1h")
	require.NoError(t, err)
	assert.Equal(t, "Updated charts to 1h", res.Toast.Message)

	same, _ := s.Charts().Get(charts.SlotRequestVolume)
	assert.Same(t, h, same)
	assert.Len(t, h.Labels(), 60)
	assert.Equal(t, rev+1, h.Revision())
	assert.Contains(t, res.Regions[ChartRegion(charts.SlotRequestVolume)], "rev=2")
}

func TestChartSVG(t *testing.T) {
	c, _ := newController(t, &fakeBackend{})
	s := c.Session("s1")

	var buf bytes.Buffer
	assert.ErrorIs(t, c.ChartSVG(s, charts.SlotCPU, &buf), ErrUnknownChart)

	_, err := c.Navigate(context.Background(), s, "metrics")
	require.NoError(t, err)
	require.NoError(t, c.ChartSVG(s, charts.SlotCPU, &buf))
	assert.Contains(t, buf.String(), "<svg")
}

// ============================================================
// Shop
// ============================================================

func TestCartFlow(t *testing.T) {
	c, _ := newController(t, &fakeBackend{})
	s := c.Session("s1")

	res, err := c.Checkout(s)
	require.NoError(t, err)
	assert.Equal(t, view.Toast{Message: "Cart is empty", Kind: view.ToastWarning}, *res.Toast)

	res, err = c.AddToCart(s, 2)
	require.NoError(t, err)
	assert.Equal(t, "Added Star Chart Collection to cart", res.Toast.Message)
	assert.Contains(t, res.Regions[RegionCart], "$149.99")

	before := s.Cart().TotalCents()
	_, err = c.AddToCart(s, 4)
	require.NoError(t, err)
	res, err = c.RemoveFromCart(s, 1)
	require.NoError(t, err)
	assert.Equal(t, before, s.Cart().TotalCents())

	res, err = c.RemoveFromCart(s, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Cart().Len())
	assert.Contains(t, res.Regions[RegionCart], "$149.99")

	res, err = c.AddToCart(s, 99)
	require.NoError(t, err)
	assert.Nil(t, res.Toast)
	assert.Equal(t, 1, s.Cart().Len())

	res, err = c.Checkout(s)
	require.NoError(t, err)
	assert.Equal(t, "Order placed successfully! Check traces in Jaeger", res.Toast.Message)
	assert.Equal(t, 0, s.Cart().Len())
	assert.Contains(t, res.Regions[RegionCart], "Cart is empty")
	assert.Contains(t, res.Regions[RegionCart], "$0.00")
}

func TestResetTopology(t *testing.T) {
	c, _ := newController(t, &fakeBackend{})
	res, err := c.ResetTopology()
	require.NoError(t, err)
	assert.Contains(t, res.Regions[RegionTopology], "<svg")
	assert.Equal(t, "Topology view reset", res.Toast.Message)
}

// ============================================================
// Sessions
// ============================================================

func TestSessionsAreEvictedAfterTTL(t *testing.T) {
	c, clk := newController(t, &fakeBackend{})
	a := c.Session("a")
	c.Session("b")
	assert.Same(t, a, c.Session("a"))
	assert.Equal(t, 2, c.SessionCount())

	clk.Advance(45 * time.Minute)
	c.Session("a")
	clk.Advance(30 * time.Minute)

	assert.Equal(t, 1, c.EvictIdle())
	_, ok := c.LookupSession("b")
	assert.False(t, ok)
	_, ok = c.LookupSession("a")
	assert.True(t, ok)
}
