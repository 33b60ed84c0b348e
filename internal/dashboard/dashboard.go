// Package dashboard is the page controller of the WatchingCat dashboard. It
// pulls data from the backend, renders it through the view package and
// publishes the fragments: shared regions go to the state store, page
// regions go back to the session that asked for them.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"watchingcat/internal/backend"
	"watchingcat/internal/cart"
	"watchingcat/internal/demo"
	"watchingcat/internal/metrics"
	"watchingcat/internal/state"
	"watchingcat/internal/view"
)

// Backend is the subset of the backend client the controller uses.
type Backend interface {
	Services(ctx context.Context) ([]backend.Service, error)
	Metrics(ctx context.Context) (backend.Metrics, error)
	Logs(ctx context.Context) ([]backend.LogEntry, error)
	StartLoadGen(ctx context.Context) (backend.LoadGenResponse, error)
	StopLoadGen(ctx context.Context) (backend.LoadGenResponse, error)
}

var (
	ErrUnknownPage   = errors.New("unknown page")
	ErrTraceNotFound = errors.New("trace not found")
	ErrUnknownChart  = errors.New("unknown chart")
)

// Options configures a Controller. Zero values fall back to defaults.
type Options struct {
	JaegerURL  string
	SessionTTL time.Duration
	Generator  *demo.Generator
	Renderer   *view.Renderer
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// Controller owns the dashboard state: the shared regions, the browser
// sessions and the demo fixtures.
type Controller struct {
	backend   Backend
	state     *state.AppState
	render    *view.Renderer
	gen       *demo.Generator
	catalog   *cart.Catalog
	topology  *demo.Topology
	metrics   *metrics.Metrics
	jaegerURL string
	ttl       time.Duration
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// New creates a controller and seeds the load generator label.
func New(b Backend, st *state.AppState, opts Options) (*Controller, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Generator == nil {
		opts.Generator = demo.NewGenerator(uint64(opts.Now().UnixNano()), opts.Now)
	}
	if opts.Renderer == nil {
		r, err := view.NewRenderer(nil)
		if err != nil {
			return nil, err
		}
		opts.Renderer = r
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Discard()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.JaegerURL == "" {
		opts.JaegerURL = "http://localhost:16686"
	}

	catalog, err := cart.DefaultCatalog()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	topology, err := demo.DefaultTopology()
	if err != nil {
		return nil, fmt.Errorf("load topology: %w", err)
	}

	c := &Controller{
		backend:   b,
		state:     st,
		render:    opts.Renderer,
		gen:       opts.Generator,
		catalog:   catalog,
		topology:  topology,
		metrics:   opts.Metrics,
		jaegerURL: opts.JaegerURL,
		ttl:       opts.SessionTTL,
		now:       opts.Now,
		sessions:  make(map[string]*Session),
	}
	if err := c.publishLoadGen(); err != nil {
		return nil, err
	}
	return c, nil
}

// State returns the shared region store.
func (c *Controller) State() *state.AppState {
	return c.state
}

// Result is the answer to a user action: the regions to replace and an
// optional toast.
type Result struct {
	Page    Page                    `json:"page,omitempty"`
	Regions map[state.Region]string `json:"regions"`
	Toast   *view.Toast             `json:"toast,omitempty"`
}

func newResult() Result {
	return Result{Regions: make(map[state.Region]string)}
}

func (r *Result) toast(kind, format string, args ...any) {
	r.Toast = &view.Toast{Message: fmt.Sprintf(format, args...), Kind: kind}
}

// ============================================================
// Logging: stdout and the activity log
// ============================================================

const component = "Dashboard"

func (c *Controller) logDebug(msg string, attrs ...any) {
	c.log(slog.LevelDebug, msg, attrs...)
}

func (c *Controller) logInfo(msg string, attrs ...any) {
	c.log(slog.LevelInfo, msg, attrs...)
}

func (c *Controller) logError(msg string, attrs ...any) {
	c.log(slog.LevelError, msg, attrs...)
}

func (c *Controller) log(level slog.Level, msg string, attrs ...any) {
	allAttrs := append([]any{"component", component}, attrs...)
	slog.Log(context.Background(), level, msg, allAttrs...)

	// Only add to the activity log if this level is enabled
	if slog.Default().Enabled(context.Background(), level) {
		c.state.AddLog(level.String(), component, state.FormatLogMessage(level.String(), msg, attrs...))
	}
}
