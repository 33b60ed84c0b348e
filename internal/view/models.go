// Package view turns backend payloads and demo data into typed view-models
// and renders them into HTML fragments. All output goes through
// html/template, so payload strings are always escaped.
package view

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"watchingcat/internal/backend"
	"watchingcat/internal/cart"
	"watchingcat/internal/charts"
	"watchingcat/internal/demo"
)

// placeholder is shown for missing numeric values.
const placeholder = "--"

// ServiceCard is one card of the service grid.
type ServiceCard struct {
	Name    string
	URL     string
	Status  string
	Healthy bool
}

// ServiceGrid is the content of the services region. Failed grids render
// a single error card and nothing else.
type ServiceGrid struct {
	Cards  []ServiceCard
	Failed bool
}

// BuildServiceGrid maps a services payload to grid cards.
func BuildServiceGrid(services []backend.Service) ServiceGrid {
	cards := make([]ServiceCard, 0, len(services))
	for _, s := range services {
		cards = append(cards, ServiceCard{Name: s.Name, URL: s.URL, Status: s.Status, Healthy: s.Healthy})
	}
	return ServiceGrid{Cards: cards}
}

// FailedServiceGrid is the grid shown after a failed services fetch.
func FailedServiceGrid() ServiceGrid {
	return ServiceGrid{Failed: true}
}

// SystemStatus summarizes service health in the header.
type SystemStatus struct {
	Class string
	Text  string
}

// BuildSystemStatus reports operational when every service is healthy,
// degraded when some are, and down when none are.
func BuildSystemStatus(services []backend.Service) SystemStatus {
	healthy := 0
	for _, s := range services {
		if s.Healthy {
			healthy++
		}
	}
	switch {
	case healthy == len(services):
		return SystemStatus{Class: "healthy", Text: "All Systems Operational"}
	case healthy > 0:
		return SystemStatus{Class: "degraded", Text: "Degraded Performance"}
	default:
		return SystemStatus{Class: "down", Text: "System Down"}
	}
}

// MetricsPanel holds the formatted request metrics.
type MetricsPanel struct {
	RequestRate string // req/s, one decimal
	ErrorRate   string // percent, two decimals
	AvgLatency  string // ms, integer
	P95Latency  string // ms, integer
	SuccessRate string // percent, one decimal
}

// BuildMetrics formats a metrics payload. Zero values render as "--".
func BuildMetrics(m backend.Metrics) MetricsPanel {
	return MetricsPanel{
		RequestRate: fixed(m.RequestRate, 1),
		ErrorRate:   fixed(m.ErrorRate*100, 2),
		AvgLatency:  fixed(m.AvgLatencyMs, 0),
		P95Latency:  fixed(m.P95LatencyMs, 0),
		SuccessRate: toFixed(100-m.ErrorRate*100, 1) + "%",
	}
}

func fixed(v float64, prec int) string {
	if v == 0 {
		return placeholder
	}
	return toFixed(v, prec)
}

// toFixed formats v with prec decimals, rounding the exact binary value half
// away from zero as Number.prototype.toFixed does: 0.25 gives "0.3" where
// strconv gives "0.2".
func toFixed(v float64, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', prec, 64)
	}
	neg := v < 0
	r := new(big.Rat).SetFloat64(math.Abs(v))
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(prec)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	r.Add(r, big.NewRat(1, 2))
	digits := new(big.Int).Quo(r.Num(), r.Denom()).String()

	if prec > 0 {
		if len(digits) <= prec {
			digits = strings.Repeat("0", prec-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-prec] + "." + digits[len(digits)-prec:]
	}
	if neg {
		return "-" + digits
	}
	return digits
}

// LogLine is one entry of the log list.
type LogLine struct {
	Time    string
	Level   string
	Service string
	Message string
	TraceID string
}

// BuildLogs formats log entries with wall-clock times in loc.
func BuildLogs(logs []backend.LogEntry, loc *time.Location) []LogLine {
	out := make([]LogLine, 0, len(logs))
	for _, l := range logs {
		at := placeholder
		if !l.Timestamp.IsZero() {
			at = l.Timestamp.In(loc).Format("15:04:05")
		}
		out = append(out, LogLine{
			Time:    at,
			Level:   l.Level,
			Service: l.Service,
			Message: l.Message,
			TraceID: l.TraceID,
		})
	}
	return out
}

// ServiceDetail is a card of the services page.
type ServiceDetail struct {
	Name         string
	URL          string
	Healthy      bool
	RequestsPerS string
	Latency      string
	ErrorRate    string
}

// BuildServiceDetail combines a service with mock per-service stats.
func BuildServiceDetail(s backend.Service, stats demo.ServiceStats) ServiceDetail {
	return ServiceDetail{
		Name:         s.Name,
		URL:          s.URL,
		Healthy:      s.Healthy,
		RequestsPerS: strconv.Itoa(stats.RequestsPerSec),
		Latency:      strconv.Itoa(stats.LatencyMs) + "ms",
		ErrorRate:    toFixed(stats.ErrorPercent, 2) + "%",
	}
}

// TraceItem is one row of the traces list.
type TraceItem struct {
	ID       string
	Duration string
	Started  string
	Services []string
}

// BuildTraceItems formats the traces list.
func BuildTraceItems(traces []demo.Trace, loc *time.Location) []TraceItem {
	out := make([]TraceItem, 0, len(traces))
	for _, t := range traces {
		out = append(out, TraceItem{
			ID:       t.ID,
			Duration: strconv.Itoa(t.DurationMs) + "ms",
			Started:  t.Timestamp.In(loc).Format("2006-01-02 15:04:05"),
			Services: t.Services,
		})
	}
	return out
}

// SpanRow is one positioned span of the trace modal.
type SpanRow struct {
	Service      string
	Operation    string
	Duration     string
	Color        string
	IndentPx     int
	StartPercent string
	WidthPercent string
	BarLabel     string
	Tags         []demo.Tag
}

// TraceModal is the trace detail dialog.
type TraceModal struct {
	ID         string
	Duration   string
	Services   int
	Spans      int
	Started    string
	Rows       []SpanRow
	JaegerLink string
}

// BuildTraceModal lays out the spans of t.
func BuildTraceModal(t demo.Trace, spans []demo.Span, jaegerURL string, loc *time.Location) TraceModal {
	bars := demo.LayoutSpans(spans, t.DurationMs)
	rows := make([]SpanRow, 0, len(bars))
	for _, b := range bars {
		row := SpanRow{
			Service:      b.Service,
			Operation:    b.OperationName,
			Duration:     strconv.Itoa(b.DurationMs) + "ms",
			Color:        b.Color,
			IndentPx:     b.IndentPx,
			StartPercent: toFixed(b.StartPercent, 2),
			WidthPercent: toFixed(b.WidthPercent, 2),
			Tags:         b.Tags,
		}
		if b.ShowDuration {
			row.BarLabel = row.Duration
		}
		rows = append(rows, row)
	}
	return TraceModal{
		ID:         t.ID,
		Duration:   strconv.Itoa(t.DurationMs) + "ms",
		Services:   len(t.Services),
		Spans:      len(spans),
		Started:    t.Timestamp.In(loc).Format("15:04:05"),
		Rows:       rows,
		JaegerLink: fmt.Sprintf("%s/trace/%s", jaegerURL, t.ID),
	}
}

// Product is a product tile of the shop page.
type Product struct {
	ID    int
	Name  string
	Price string
	Image string
}

// BuildProducts formats the shop catalog.
func BuildProducts(products []cart.Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		out = append(out, Product{ID: p.ID, Name: p.Name, Price: cart.FormatCents(p.Cents()), Image: p.Image})
	}
	return out
}

// CartItem is one line of the cart.
type CartItem struct {
	Index int
	Name  string
	Price string
}

// Cart is the cart side panel.
type Cart struct {
	Items []CartItem
	Total string
}

// BuildCart formats cart contents; Total always equals the sum of the
// listed prices.
func BuildCart(items []cart.Product) Cart {
	out := Cart{Items: make([]CartItem, 0, len(items))}
	var total int64
	for i, p := range items {
		total += p.Cents()
		out.Items = append(out.Items, CartItem{Index: i, Name: p.Name, Price: cart.FormatCents(p.Cents())})
	}
	out.Total = cart.FormatCents(total)
	return out
}

// Chart references a chart handle image.
type Chart struct {
	Slot     string
	Title    string
	Revision int
}

// BuildChart points at the SVG rendering of h.
func BuildChart(h *charts.Handle) Chart {
	return Chart{Slot: h.Slot(), Title: h.Title(), Revision: h.Revision()}
}

// Topology is the service diagram.
type Topology struct {
	Width  int
	Height int
	Nodes  []demo.Node
	Links  []demo.Link
}

// BuildTopology resolves the diagram links.
func BuildTopology(t *demo.Topology) (Topology, error) {
	links, err := t.Links()
	if err != nil {
		return Topology{}, err
	}
	return Topology{Width: 1000, Height: 500, Nodes: t.Nodes, Links: links}, nil
}

// LoadGen is the load generator status label.
type LoadGen struct {
	Running bool
	Known   bool
}

// Toast is a transient notification.
type Toast struct {
	Message string `json:"message"`
	Kind    string `json:"kind"` // success, error, warning, info
}

// Toast kinds.
const (
	ToastSuccess = "success"
	ToastError   = "error"
	ToastWarning = "warning"
	ToastInfo    = "info"
)
