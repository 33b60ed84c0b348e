package view

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"watchingcat/internal/demo"
)

const lineHeight = 14

var funcMap = template.FuncMap{
	// lineY centers n text lines of a topology node around its origin.
	"lineY": func(i, n int) int {
		return i*lineHeight - (n-1)*lineHeight/2 + 4
	},
}

// Renderer renders view-models into HTML fragments.
type Renderer struct {
	tmpl    *template.Template
	loc     *time.Location
	printer *message.Printer
}

// NewRenderer parses the fragment templates. Times are shown in loc; a nil
// loc uses the local time zone.
func NewRenderer(loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.Local
	}
	tmpl := template.New("").Funcs(funcMap)
	for _, src := range []string{tmplServices, tmplMetrics, tmplTraces, tmplTopology, tmplShop} {
		var err error
		if tmpl, err = tmpl.Parse(src); err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
	}
	return &Renderer{
		tmpl:    tmpl,
		loc:     loc,
		printer: message.NewPrinter(language.English),
	}, nil
}

// Location returns the time zone used for displayed times.
func (r *Renderer) Location() *time.Location {
	return r.loc
}

func (r *Renderer) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// ServiceGrid renders the service cards, or the single error card of a
// failed grid.
func (r *Renderer) ServiceGrid(g ServiceGrid) (string, error) {
	return r.render("service-grid", g)
}

// SystemStatus renders the header health indicator.
func (r *Renderer) SystemStatus(s SystemStatus) (string, error) {
	return r.render("system-status", s)
}

// ServiceDetails renders the cards of the services page.
func (r *Renderer) ServiceDetails(d []ServiceDetail) (string, error) {
	return r.render("service-details", d)
}

// Metrics renders the key metric tiles.
func (r *Renderer) Metrics(m MetricsPanel) (string, error) {
	return r.render("metrics", m)
}

// Logs renders the log list.
func (r *Renderer) Logs(l []LogLine) (string, error) {
	return r.render("logs", l)
}

// LastUpdated renders the wall-clock time of t.
func (r *Renderer) LastUpdated(t time.Time) (string, error) {
	return r.render("last-updated", t.In(r.loc).Format("15:04:05"))
}

// LoadGen renders the load generator status label.
func (r *Renderer) LoadGen(l LoadGen) (string, error) {
	return r.render("loadgen", l)
}

type toolStatsView struct {
	JaegerTraces      string
	PrometheusMetrics string
	KibanaLogs        string
}

// ToolStats renders the observability tool tiles.
func (r *Renderer) ToolStats(s demo.ToolStats) (string, error) {
	return r.render("tool-stats", toolStatsView{
		JaegerTraces:      r.printer.Sprintf("%d", s.JaegerTraces),
		PrometheusMetrics: r.printer.Sprintf("%d", s.PrometheusMetrics),
		KibanaLogs:        r.compact(s.KibanaLogs),
	})
}

// compact abbreviates counts of ten thousand and more ("12.5K").
func (r *Renderer) compact(n int) string {
	switch {
	case n >= 10_000_000:
		return r.printer.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 10_000:
		return r.printer.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return r.printer.Sprintf("%d", n)
	}
}

// Chart renders the image slot of a chart handle.
func (r *Renderer) Chart(c Chart) (string, error) {
	return r.render("chart", c)
}

// TraceList renders the traces page list.
func (r *Renderer) TraceList(items []TraceItem) (string, error) {
	return r.render("trace-list", items)
}

// TraceModal renders the trace detail dialog.
func (r *Renderer) TraceModal(m TraceModal) (string, error) {
	return r.render("trace-modal", m)
}

// Topology renders the service diagram as inline SVG.
func (r *Renderer) Topology(t Topology) (string, error) {
	return r.render("topology", t)
}

// Products renders the shop grid.
func (r *Renderer) Products(p []Product) (string, error) {
	return r.render("products", p)
}

// Cart renders the cart panel.
func (r *Renderer) Cart(c Cart) (string, error) {
	return r.render("cart", c)
}
