package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"watchingcat/internal/dashboard"
	"watchingcat/internal/metrics"
	"watchingcat/internal/state"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for simplicity
	},
}

const (
	writeWait    = 10 * time.Second
	sendBuffer   = 16
	resyncPeriod = time.Second
)

// Refresher starts an out-of-schedule refresh cycle.
type Refresher interface {
	// Accepting reports whether the refresh loop is live.
	Accepting() bool
	// Trigger starts a cycle unless one is already running.
	Trigger() bool
}

// Options configures a Server.
type Options struct {
	Port       string
	Version    string
	SessionTTL time.Duration
	Refresher  Refresher
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
}

// Server serves the dashboard shell, the region stream and the action API.
type Server struct {
	ctrl      *dashboard.Controller
	appState  *state.AppState
	refresher Refresher
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	port      string
	version   string
	ttl       time.Duration

	clients   map[*client]bool
	clientsMu sync.Mutex
	broadcast chan update

	httpSrv  *http.Server
	done     chan struct{}
	doneOnce sync.Once
}

// client is one region-stream subscriber. Only its writer goroutine
// touches the connection for writing.
type client struct {
	conn *websocket.Conn
	send chan []byte
	// since is the region version of the snapshot the client started from.
	since uint64
}

// regionsMessage is pushed to every subscriber when shared regions change.
type regionsMessage struct {
	Type    string                  `json:"type"`
	Version uint64                  `json:"version"`
	Regions map[state.Region]string `json:"regions"`
}

// update is an encoded diff tagged with the region version it was taken at.
type update struct {
	version uint64
	data    []byte
}

// New creates the web server and starts its broadcast loops.
func New(ctrl *dashboard.Controller, opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Discard()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.NewRegistry()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	s := &Server{
		ctrl:      ctrl,
		appState:  ctrl.State(),
		refresher: opts.Refresher,
		metrics:   opts.Metrics,
		gatherer:  opts.Gatherer,
		port:      opts.Port,
		version:   opts.Version,
		ttl:       opts.SessionTTL,
		clients:   make(map[*client]bool),
		broadcast: make(chan update, 256),
		done:      make(chan struct{}),
	}

	// Start broadcast handler
	go s.handleBroadcasts()

	// Start state change monitor
	go s.monitorStateChanges()

	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// API endpoints
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/refresh", s.handleRefresh)
	mux.HandleFunc("/api/navigate", s.withSession(s.handleNavigate))
	mux.HandleFunc("/api/cart/add", s.withSession(s.handleCartAdd))
	mux.HandleFunc("/api/cart/remove", s.withSession(s.handleCartRemove))
	mux.HandleFunc("/api/checkout", s.withSession(s.handleCheckout))
	mux.HandleFunc("/api/loadgen/start", s.handleLoadGenStart)
	mux.HandleFunc("/api/loadgen/stop", s.handleLoadGenStop)
	mux.HandleFunc("/api/traces/search", s.withSession(s.handleTraceSearch))
	mux.HandleFunc("/api/traces/{id}", s.withKnownSession(s.handleTraceDetails))
	mux.HandleFunc("/api/charts/range", s.withSession(s.handleChartRange))
	mux.HandleFunc("/api/topology/reset", s.handleTopologyReset)
	mux.HandleFunc("/charts/{file}", s.withKnownSession(s.handleChartSVG))

	// Operational endpoints
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealthz)

	// Serve the UI
	mux.HandleFunc("/{$}", s.withSession(s.handleUI))

	return mux
}

// Start listens on the configured port in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%s", s.port)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("Web UI listening", "address", addr, "component", "Web")

	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Web server failed", "error", err, "component", "Web")
		}
	}()
}

// Shutdown stops the broadcast loops, disconnects stream clients and
// gracefully stops the listener if Start was called.
func (s *Server) Shutdown(ctx context.Context) error {
	s.doneOnce.Do(func() { close(s.done) })

	s.clientsMu.Lock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	s.clientsMu.Unlock()

	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// ============================================================
// Region stream
// ============================================================

// handleWebSocket upgrades HTTP connection to WebSocket and manages client lifecycle.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err, "component", "Web")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	// The full region set is queued under the lock so it is the first message.
	// Diffs taken at or before its version are dropped for this client.
	s.clientsMu.Lock()
	regions, version := s.appState.RegionsSince(0)
	c.since = version
	if data, err := json.Marshal(regionsMessage{Type: "regions", Version: version, Regions: regions}); err == nil {
		c.send <- data
	}
	s.clients[c] = true
	s.clientsMu.Unlock()
	s.metrics.WebSocketConns.Inc()
	slog.Debug("WebSocket client connected", "component", "Web")

	go c.writeLoop()

	// Wait for client disconnect
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.removeClient(c)
	s.metrics.WebSocketConns.Dec()
	slog.Debug("WebSocket client disconnected", "component", "Web")
}

func (c *client) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
}

func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if s.clients[c] {
		delete(s.clients, c)
		close(c.send)
	}
}

// handleBroadcasts fans messages out to every client. A client whose buffer
// is full is dropped.
func (s *Server) handleBroadcasts() {
	for {
		select {
		case <-s.done:
			return
		case u := <-s.broadcast:
			s.clientsMu.Lock()
			for c := range s.clients {
				if u.version <= c.since {
					continue
				}
				select {
				case c.send <- u.data:
				default:
					delete(s.clients, c)
					close(c.send)
				}
			}
			s.clientsMu.Unlock()
		}
	}
}

// monitorStateChanges broadcasts changed regions immediately on any mutation,
// with a 1-second ticker as a fallback to catch any updates that may be missed.
func (s *Server) monitorStateChanges() {
	ticker := time.NewTicker(resyncPeriod)
	defer ticker.Stop()
	changeCh := s.appState.ChangeCh()

	var lastVersion uint64
	maybeBroadcast := func() {
		regions, version := s.appState.RegionsSince(lastVersion)
		lastVersion = version
		if len(regions) == 0 {
			return
		}
		if data, err := json.Marshal(regionsMessage{Type: "regions", Version: version, Regions: regions}); err == nil {
			select {
			case s.broadcast <- update{version: version, data: data}:
			default:
			}
		}
	}

	for {
		select {
		case <-s.done:
			return
		case <-changeCh:
			maybeBroadcast()
		case <-ticker.C:
			maybeBroadcast()
		}
	}
}
