package demo

import (
	"strconv"
	"time"
)

// Trace is a mock trace shown in the traces list.
type Trace struct {
	ID         string
	DurationMs int
	Services   []string
	Timestamp  time.Time
}

// Tag is one span attribute. Tags keep their insertion order.
type Tag struct {
	Key   string
	Value string
}

// Span is a mock span of a trace.
type Span struct {
	SpanID        string
	OperationName string
	Service       string
	StartMs       int
	DurationMs    int
	Tags          []Tag
	Level         int
}

// traceServices are the services every mock trace touches.
var traceServices = []string{"frontend", "cartservice", "checkoutservice"}

// childServices are the services called by the root span, in call order.
var childServices = []string{"cartservice", "productcatalog", "checkoutservice"}

const (
	childStartStepMs = 30
	childDurationPct = 0.3
)

// Traces returns n mock traces with durations in [100, 1099] ms and start
// times within the last hour.
func (g *Generator) Traces(n int) []Trace {
	now := g.now()
	out := make([]Trace, 0, n)
	for i := 0; i < n; i++ {
		services := make([]string, len(traceServices))
		copy(services, traceServices)
		ago := time.Duration(g.fraction() * float64(time.Hour))
		out = append(out, Trace{
			ID:         g.hexID(32),
			DurationMs: g.intRange(100, 1099),
			Services:   services,
			Timestamp:  now.Add(-ago),
		})
	}
	return out
}

// Spans fabricates the span tree of t: one root span covering the whole
// trace and three level-1 children starting 30 ms apart, each lasting 30%
// of the trace.
func (g *Generator) Spans(t Trace) []Span {
	spans := make([]Span, 0, 1+len(childServices))
	spans = append(spans, Span{
		SpanID:        g.hexID(16),
		OperationName: "HTTP GET /",
		Service:       "frontend",
		StartMs:       0,
		DurationMs:    t.DurationMs,
		Tags: []Tag{
			{Key: "http.method", Value: "GET"},
			{Key: "http.url", Value: "/"},
			{Key: "http.status_code", Value: strconv.Itoa(200)},
		},
		Level: 0,
	})

	childDuration := int(float64(t.DurationMs) * childDurationPct)
	for i, svc := range childServices {
		spans = append(spans, Span{
			SpanID:        g.hexID(16),
			OperationName: svc + ".GetItems",
			Service:       svc,
			StartMs:       i * childStartStepMs,
			DurationMs:    childDuration,
			Tags: []Tag{
				{Key: "rpc.service", Value: svc},
				{Key: "rpc.method", Value: "GetItems"},
			},
			Level: 1,
		})
	}
	return spans
}

// ============================================================
// Layout
// ============================================================

const (
	// MinSpanWidthPercent keeps very short spans visible.
	MinSpanWidthPercent = 2.0
	// spanIndentPx is the left offset per nesting level.
	spanIndentPx = 30
	// durationLabelPercent is the bar width above which the duration is
	// printed inside the bar.
	durationLabelPercent = 15.0
)

var serviceColors = map[string]string{
	"frontend":        "#6366f1",
	"cartservice":     "#10b981",
	"productcatalog":  "#f59e0b",
	"checkoutservice": "#ef4444",
}

// ServiceColor returns the bar color of a service.
func ServiceColor(service string) string {
	if c, ok := serviceColors[service]; ok {
		return c
	}
	return "#64748b"
}

// SpanBar is a span positioned on the trace timeline. Percentages are
// relative to the trace duration.
type SpanBar struct {
	Span
	StartPercent float64
	WidthPercent float64
	IndentPx     int
	Color        string
	ShowDuration bool
}

// LayoutSpans positions spans against a trace lasting totalMs.
func LayoutSpans(spans []Span, totalMs int) []SpanBar {
	bars := make([]SpanBar, 0, len(spans))
	for _, s := range spans {
		var start, width float64
		if totalMs > 0 {
			start = float64(s.StartMs) / float64(totalMs) * 100
			width = float64(s.DurationMs) / float64(totalMs) * 100
		}
		if width < MinSpanWidthPercent {
			width = MinSpanWidthPercent
		}
		bars = append(bars, SpanBar{
			Span:         s,
			StartPercent: start,
			WidthPercent: width,
			IndentPx:     s.Level * spanIndentPx,
			Color:        ServiceColor(s.Service),
			ShowDuration: width > durationLabelPercent,
		})
	}
	return bars
}
