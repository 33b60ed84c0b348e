package dashboard

import (
	"sync"
	"time"

	"watchingcat/internal/cart"
	"watchingcat/internal/charts"
	"watchingcat/internal/demo"
)

// Session is the per-browser state: current page, chart handles, cart and
// the traces listed on the last traces page visit.
type Session struct {
	id     string
	charts *charts.Registry
	cart   *cart.Cart

	mu       sync.Mutex
	page     Page
	traces   []demo.Trace
	lastSeen time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		id:       id,
		charts:   charts.NewRegistry(),
		cart:     cart.New(),
		page:     PageDashboard,
		lastSeen: now,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Page returns the current page.
func (s *Session) Page() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Charts returns the session's chart handles.
func (s *Session) Charts() *charts.Registry { return s.charts }

// Cart returns the session's cart.
func (s *Session) Cart() *cart.Cart { return s.cart }

func (s *Session) setPage(p Page) {
	s.mu.Lock()
	s.page = p
	s.mu.Unlock()
}

func (s *Session) setTraces(traces []demo.Trace) {
	s.mu.Lock()
	s.traces = traces
	s.mu.Unlock()
}

func (s *Session) trace(id string) (demo.Trace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.traces {
		if t.ID == id {
			return t, true
		}
	}
	return demo.Trace{}, false
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Session returns the session with id, creating it on first use.
func (c *Controller) Session(id string) *Session {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	if !ok {
		s = newSession(id, now)
		c.sessions[id] = s
		c.metrics.Sessions.Set(float64(len(c.sessions)))
		return s
	}
	s.touch(now)
	return s
}

// LookupSession returns an existing session without creating one.
func (c *Controller) LookupSession(id string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	if ok {
		s.touch(c.now())
	}
	return s, ok
}

// SessionCount returns the number of live sessions.
func (c *Controller) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// EvictIdle drops sessions idle for longer than the session TTL and
// returns how many were dropped.
func (c *Controller) EvictIdle() int {
	now := c.now()
	c.mu.Lock()
	evicted := 0
	for id, s := range c.sessions {
		if s.idleSince(now) > c.ttl {
			delete(c.sessions, id)
			evicted++
		}
	}
	c.metrics.Sessions.Set(float64(len(c.sessions)))
	c.mu.Unlock()

	if evicted > 0 {
		c.logDebug("Evicted idle sessions", "count", evicted)
	}
	return evicted
}
