// Package refresh runs the dashboard refresh cycle on a fixed interval.
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"watchingcat/internal/metrics"
)

// Func is one refresh cycle. A non-nil error marks the cycle as failed; the
// poller keeps going either way.
type Func func(ctx context.Context) error

// Option configures a Poller.
type Option func(*Poller)

// WithMetrics records cycles and skipped ticks in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) { p.log = l }
}

// Poller calls a Func once on start and then on every tick. A tick or
// trigger that arrives while a cycle is still running is skipped, never
// queued.
type Poller struct {
	interval time.Duration
	fn       Func
	metrics  *metrics.Metrics
	log      *slog.Logger

	running atomic.Bool
	cycles  sync.WaitGroup

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool

	stopOnce sync.Once
}

// New creates a poller. It does nothing until Start.
func New(interval time.Duration, fn Func, opts ...Option) *Poller {
	p := &Poller{
		interval: interval,
		fn:       fn,
		log:      slog.Default().With("component", "Refresh"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start runs the first cycle immediately and then one per interval until
// ctx is cancelled or Stop is called. Calling Start more than once, or
// after Stop, has no effect.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || p.done != nil {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.loop(p.ctx, p.done)
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.tryRun(ctx, "start")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tryRun(ctx, "tick")
		}
	}
}

// Trigger starts an extra cycle right away. It returns false when the
// poller is not running or a cycle is already in flight.
func (p *Poller) Trigger() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil || p.stopped || p.ctx.Err() != nil {
		return false
	}
	return p.tryRun(p.ctx, "manual")
}

// Accepting reports whether the poller has been started and not stopped.
func (p *Poller) Accepting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctx != nil && !p.stopped && p.ctx.Err() == nil
}

// Running reports whether a cycle is in flight.
func (p *Poller) Running() bool {
	return p.running.Load()
}

// Stop cancels the poller and waits for an in-flight cycle to return. It is
// safe to call more than once; only the first call has an effect.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		cancel, done := p.cancel, p.done
		p.mu.Unlock()

		if cancel != nil {
			cancel()
			<-done
		}
		p.cycles.Wait()
		p.log.Debug("Poller stopped")
	})
}

// tryRun starts a cycle unless one is running. The cycle runs on its own
// goroutine so the ticker keeps firing and overlapping ticks are counted.
func (p *Poller) tryRun(ctx context.Context, trigger string) bool {
	if !p.running.CompareAndSwap(false, true) {
		if p.metrics != nil {
			p.metrics.RefreshSkipped.Inc()
		}
		p.log.Debug("Refresh skipped, previous cycle still running", "trigger", trigger)
		return false
	}

	p.cycles.Add(1)
	go func() {
		defer p.cycles.Done()
		defer p.running.Store(false)

		start := time.Now()
		err := p.fn(ctx)
		result := "ok"
		if err != nil {
			result = "error"
		}
		if p.metrics != nil {
			p.metrics.RefreshCycles.WithLabelValues(result).Inc()
		}
		p.log.Debug("Refresh cycle finished", "trigger", trigger, "result", result, "duration", time.Since(start).String())
	}()
	return true
}
