// Package demo fabricates the mock data shown by the dashboard: traces and
// their spans, chart series, per-service stats and the service topology.
// None of it is backed by a data source.
package demo

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Generator produces random demo data. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator returns a generator seeded with seed. A nil now uses time.Now.
func NewGenerator(seed uint64, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: now,
	}
}

// intRange returns a uniform integer in [min, max].
func (g *Generator) intRange(min, max int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return min + g.rng.IntN(max-min+1)
}

func (g *Generator) fraction() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64()
}

// hexID returns n random lowercase hex digits.
func (g *Generator) hexID(n int) string {
	const digits = "0123456789abcdef"
	g.mu.Lock()
	defer g.mu.Unlock()
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(digits[g.rng.IntN(16)])
	}
	return b.String()
}

// ============================================================
// Chart series
// ============================================================

// TimeLabels returns count "HH:MM" labels one minute apart, oldest first,
// ending at the current minute.
func (g *Generator) TimeLabels(count int) []string {
	now := g.now()
	labels := make([]string, 0, count)
	for i := count - 1; i >= 0; i-- {
		labels = append(labels, now.Add(-time.Duration(i)*time.Minute).Format("15:04"))
	}
	return labels
}

// RandomSeries returns count integer values uniform in [min, max].
func (g *Generator) RandomSeries(count, min, max int) []float64 {
	out := make([]float64, count)
	for i := range out {
		out[i] = float64(g.intRange(min, max))
	}
	return out
}

// ============================================================
// Per-service stats
// ============================================================

// ServiceStats are the mock figures shown on a detailed service card.
type ServiceStats struct {
	RequestsPerSec int
	LatencyMs      int
	ErrorPercent   float64
}

// ServiceStats returns fresh random stats for one service card.
func (g *Generator) ServiceStats() ServiceStats {
	return ServiceStats{
		RequestsPerSec: g.intRange(100, 299),
		LatencyMs:      g.intRange(50, 149),
		ErrorPercent:   g.fraction() * 5,
	}
}

// ToolStats are the fixed counters of the observability tool tiles.
type ToolStats struct {
	JaegerTraces      int
	PrometheusMetrics int
	KibanaLogs        int
}

// DefaultToolStats returns the counters shown on the dashboard page.
func DefaultToolStats() ToolStats {
	return ToolStats{
		JaegerTraces:      1234,
		PrometheusMetrics: 542,
		KibanaLogs:        12500,
	}
}
