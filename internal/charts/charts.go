// Package charts keeps the chart handles of a browser session and renders
// them to SVG.
package charts

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Kind selects the chart renderer.
type Kind string

const (
	KindLine Kind = "line"
	KindBar  Kind = "bar"
)

// Series is one dataset of a chart. Bar charts use a single series whose
// values line up with the handle labels, one color per bar.
type Series struct {
	Name   string
	Values []float64
	Colors []string // first entry is the line color; bar charts use one per value
	Fill   bool
}

// Handle is a chart instance bound to a slot. It is created once and then
// mutated in place; every mutation bumps Revision so clients can bust
// cached images.
type Handle struct {
	mu       sync.RWMutex
	slot     string
	kind     Kind
	title    string
	labels   []string
	series   []Series
	yMax     float64 // 0 means derived from the data
	revision int
}

// NewHandle creates a handle for slot.
func NewHandle(slot string, kind Kind, title string, yMax float64, labels []string, series []Series) *Handle {
	return &Handle{
		slot:     slot,
		kind:     kind,
		title:    title,
		labels:   labels,
		series:   series,
		yMax:     yMax,
		revision: 1,
	}
}

// Slot returns the slot the handle belongs to.
func (h *Handle) Slot() string { return h.slot }

// Kind returns the chart type.
func (h *Handle) Kind() Kind { return h.kind }

// Title returns the chart title.
func (h *Handle) Title() string { return h.title }

// Revision returns the number of times the data has been set.
func (h *Handle) Revision() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.revision
}

// Labels returns a copy of the x-axis labels.
func (h *Handle) Labels() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.labels...)
}

// Series returns a copy of the datasets.
func (h *Handle) Series() []Series {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Series, len(h.series))
	for i, s := range h.series {
		s.Values = append([]float64(nil), s.Values...)
		out[i] = s
	}
	return out
}

// Update replaces labels and data in place.
func (h *Handle) Update(labels []string, series []Series) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.labels = labels
	h.series = series
	h.revision++
}

// ============================================================
// Registry
// ============================================================

// Registry holds at most one handle per slot.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// GetOrCreate returns the handle of slot, calling build only when the slot
// is empty. created reports whether build ran.
func (r *Registry) GetOrCreate(slot string, build func() *Handle) (h *Handle, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[slot]; ok {
		return h, false
	}
	h = build()
	r.handles[slot] = h
	return h, true
}

// Get returns the handle of slot if it exists.
func (r *Registry) Get(slot string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[slot]
	return h, ok
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// ============================================================
// Rendering
// ============================================================

const (
	chartWidth  = 720
	chartHeight = 280
)

// RenderSVG writes the chart as an SVG document.
func (h *Handle) RenderSVG(w io.Writer) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.series) == 0 || len(h.labels) == 0 {
		return fmt.Errorf("chart %s: no data", h.slot)
	}

	switch h.kind {
	case KindBar:
		return h.renderBar(w)
	default:
		return h.renderLine(w)
	}
}

func (h *Handle) renderLine(w io.Writer) error {
	ticks := make([]chart.Tick, len(h.labels))
	xs := make([]float64, len(h.labels))
	for i, l := range h.labels {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: l}
	}

	series := make([]chart.Series, 0, len(h.series))
	for _, s := range h.series {
		style := chart.Style{
			StrokeColor: color(s.Colors, 0),
			StrokeWidth: 2,
		}
		if s.Fill {
			style.FillColor = color(s.Colors, 0).WithAlpha(25)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: padValues(s.Values, len(xs)),
			Style:   style,
		})
	}

	graph := chart.Chart{
		Title:  h.title,
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Ticks: ticks},
		YAxis:  chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: h.upperBound()}},
		Series: series,
	}
	if len(series) > 1 {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}
	return graph.Render(chart.SVG, w)
}

func (h *Handle) renderBar(w io.Writer) error {
	s := h.series[0]
	bars := make([]chart.Value, len(h.labels))
	for i, l := range h.labels {
		var v float64
		if i < len(s.Values) {
			v = s.Values[i]
		}
		c := color(s.Colors, i)
		bars[i] = chart.Value{
			Label: l,
			Value: v,
			Style: chart.Style{FillColor: c, StrokeColor: c},
		}
	}

	graph := chart.BarChart{
		Title:    h.title,
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 60,
		YAxis:    chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: h.upperBound()}},
		Bars:     bars,
	}
	return graph.Render(chart.SVG, w)
}

// upperBound returns the fixed y maximum or 110% of the largest value.
func (h *Handle) upperBound() float64 {
	if h.yMax > 0 {
		return h.yMax
	}
	var max float64
	for _, s := range h.series {
		for _, v := range s.Values {
			if v > max {
				max = v
			}
		}
	}
	if max <= 0 {
		return 1
	}
	return max * 1.1
}

func color(colors []string, i int) drawing.Color {
	if len(colors) == 0 {
		return drawing.ColorFromHex("64748b")
	}
	if i >= len(colors) {
		i = len(colors) - 1
	}
	return drawing.ColorFromHex(strings.TrimPrefix(colors[i], "#"))
}

func padValues(values []float64, n int) []float64 {
	if len(values) >= n {
		return values[:n]
	}
	out := make([]float64, n)
	copy(out, values)
	return out
}
