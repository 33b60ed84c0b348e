package view

// ── Shared regions ───────────────────────────────────────────────────────────

const tmplServices = `
{{define "service-grid" -}}
{{if .Failed -}}
<div class="service-card unhealthy">
  <h3>Error</h3>
  <div class="service-url">Failed to fetch service status</div>
  <div class="service-status"><i class="fas fa-exclamation-triangle"></i> Check services</div>
</div>
{{- else -}}
{{range .Cards}}{{template "service-card" .}}{{end}}
{{- end}}
{{- end}}

{{define "service-card" -}}
<div class="service-card {{if .Healthy}}healthy{{else}}unhealthy{{end}}">
  <h3>{{.Name}}</h3>
  <div class="service-url">{{.URL}}</div>
  <div class="service-status"><i class="fas fa-{{if .Healthy}}check-circle{{else}}times-circle{{end}}"></i> {{.Status}}</div>
</div>
{{- end}}

{{define "system-status" -}}
<span class="status-indicator {{.Class}}"></span><span class="status-text">{{.Text}}</span>
{{- end}}

{{define "service-details" -}}
{{if not .}}<div class="empty">No services reported</div>{{end -}}
{{range .}}
<div class="service-detail-card">
  <div class="service-card-header">
    <div class="service-name">{{.Name}}</div>
    <div class="service-url">{{.URL}}</div>
    {{if .Healthy}}<span class="service-badge healthy">Healthy</span>{{else}}<span class="service-badge unhealthy">Unhealthy</span>{{end}}
  </div>
  <div class="service-stats">
    <div class="service-stat"><div class="service-stat-value">{{.RequestsPerS}}</div><div class="service-stat-label">req/sec</div></div>
    <div class="service-stat"><div class="service-stat-value">{{.Latency}}</div><div class="service-stat-label">latency</div></div>
    <div class="service-stat"><div class="service-stat-value">{{.ErrorRate}}</div><div class="service-stat-label">error rate</div></div>
  </div>
</div>
{{- end}}
{{- end}}
`

const tmplMetrics = `
{{define "metrics" -}}
<div class="metric-card"><div class="metric-value" id="request-rate">{{.RequestRate}}</div><div class="metric-label">req/s</div></div>
<div class="metric-card"><div class="metric-value" id="error-rate">{{.ErrorRate}}</div><div class="metric-label">error %</div></div>
<div class="metric-card"><div class="metric-value" id="avg-latency">{{.AvgLatency}}</div><div class="metric-label">avg latency (ms)</div></div>
<div class="metric-card"><div class="metric-value" id="p95-latency">{{.P95Latency}}</div><div class="metric-label">p95 latency (ms)</div></div>
<div class="metric-card"><div class="metric-value" id="success-rate">{{.SuccessRate}}</div><div class="metric-label">success rate</div></div>
{{- end}}

{{define "logs" -}}
{{range .}}
<div class="log-entry {{.Level}}">
  <span class="log-timestamp">{{.Time}}</span>
  <span class="log-level {{.Level}}">{{.Level}}</span>
  <span class="log-service">{{.Service}}</span>
  <span class="log-message">{{.Message}}</span>
  {{- if .TraceID}}<br><span class="log-timestamp">Trace ID: {{.TraceID}}</span>{{end}}
</div>
{{- end}}
{{- end}}

{{define "last-updated" -}}
{{.}}
{{- end}}

{{define "loadgen" -}}
{{if not .Known}}<span class="status-badge">--</span>
{{- else if .Running}}<span class="status-badge running">Running</span>
{{- else}}<span class="status-badge stopped">Stopped</span>
{{- end}}
{{- end}}

{{define "tool-stats" -}}
<div class="tool-stat" id="jaeger-traces"><span class="tool-stat-value">{{.JaegerTraces}}</span> traces</div>
<div class="tool-stat" id="prometheus-metrics"><span class="tool-stat-value">{{.PrometheusMetrics}}</span> metrics</div>
<div class="tool-stat" id="kibana-logs"><span class="tool-stat-value">{{.KibanaLogs}}</span> logs</div>
{{- end}}

{{define "chart" -}}
<div class="chart-card" data-slot="{{.Slot}}">
  <img class="chart-img" alt="{{.Title}}" src="/charts/{{.Slot}}.svg?rev={{.Revision}}">
</div>
{{- end}}
`

// ── Traces ───────────────────────────────────────────────────────────────────

const tmplTraces = `
{{define "trace-list" -}}
{{if not .}}<div class="empty">No traces found</div>{{end -}}
{{range .}}
<div class="trace-item" data-action="trace-open" data-id="{{.ID}}">
  <div class="trace-header">
    <span class="trace-id">{{.ID}}</span>
    <span class="trace-duration">{{.Duration}}</span>
  </div>
  <div class="trace-meta">{{.Started}}</div>
  <div class="trace-services">{{range .Services}}<span class="trace-service-badge">{{.}}</span>{{end}}</div>
</div>
{{- end}}
{{- end}}

{{define "trace-modal" -}}
<div class="trace-modal-header">
  <div>
    <h2><i class="fas fa-project-diagram"></i> Trace Details</h2>
    <div class="trace-id-display">Trace ID: {{.ID}}</div>
  </div>
  <button class="btn-close" data-action="trace-close"><i class="fas fa-times"></i></button>
</div>
<div class="trace-summary">
  <div class="trace-summary-item"><span class="label">Duration:</span> <span class="value">{{.Duration}}</span></div>
  <div class="trace-summary-item"><span class="label">Services:</span> <span class="value">{{.Services}}</span></div>
  <div class="trace-summary-item"><span class="label">Spans:</span> <span class="value">{{.Spans}}</span></div>
  <div class="trace-summary-item"><span class="label">Started:</span> <span class="value">{{.Started}}</span></div>
</div>
<div class="trace-timeline">
  <h3><i class="fas fa-stream"></i> Span Timeline</h3>
  <div class="spans-container">
{{- range .Rows}}
    <div class="span-row" style="margin-left: {{.IndentPx}}px;">
      <div class="span-info">
        <div class="span-service" style="color: {{.Color}};"><i class="fas fa-cube"></i> {{.Service}}</div>
        <div class="span-operation">{{.Operation}}</div>
        <div class="span-duration">{{.Duration}}</div>
      </div>
      <div class="span-bar-container" title="{{.Service}}: {{.Operation}} ({{.Duration}})">
        <div class="span-bar" style="left: {{.StartPercent}}%; width: {{.WidthPercent}}%; background: {{.Color}};">{{.BarLabel}}</div>
      </div>
      <div class="span-tags">{{range .Tags}}<span class="span-tag"><strong>{{.Key}}:</strong> {{.Value}}</span>{{end}}</div>
    </div>
{{- end}}
  </div>
</div>
<div class="trace-actions">
  <a class="btn btn-outline" href="{{.JaegerLink}}" target="_blank" rel="noopener"><i class="fas fa-external-link-alt"></i> View in Jaeger</a>
  <button class="btn btn-primary" data-action="trace-close">Close</button>
</div>
{{- end}}
`

// ── Topology ─────────────────────────────────────────────────────────────────

const tmplTopology = `
{{define "topology" -}}
<svg class="topology" viewBox="0 0 {{.Width}} {{.Height}}" xmlns="http://www.w3.org/2000/svg">
  <defs>
    <marker id="arrow" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="6" markerHeight="6" orient="auto-start-reverse">
      <path d="M 0 0 L 10 5 L 0 10 z" fill="#94a3b8"></path>
    </marker>
  </defs>
{{- range .Links}}
  <line x1="{{.From.X}}" y1="{{.From.Y}}" x2="{{.To.X}}" y2="{{.To.Y}}" stroke="#94a3b8" stroke-width="2" marker-end="url(#arrow)"></line>
{{- end}}
{{- range .Nodes}}
  <g class="topology-node" transform="translate({{.X}},{{.Y}})">
    <rect x="-60" y="-25" width="120" height="50" rx="8" fill="{{.Fill}}" stroke="{{.Stroke}}" stroke-width="2"></rect>
    {{- $lines := .Lines}}{{$n := len $lines}}
    {{- range $i, $l := $lines}}
    <text x="0" y="{{lineY $i $n}}" text-anchor="middle" font-size="12">{{$l}}</text>
    {{- end}}
  </g>
{{- end}}
</svg>
{{- end}}
`

// ── Shop ─────────────────────────────────────────────────────────────────────

const tmplShop = `
{{define "products" -}}
{{range .}}
<div class="product-card">
  <div class="product-image">{{.Image}}</div>
  <div class="product-info">
    <div class="product-name">{{.Name}}</div>
    <div class="product-price">{{.Price}}</div>
    <button class="btn btn-primary btn-block" data-action="cart-add" data-id="{{.ID}}"><i class="fas fa-cart-plus"></i> Add to Cart</button>
  </div>
</div>
{{- end}}
{{- end}}

{{define "cart" -}}
{{if not .Items -}}
<div class="cart-empty">Cart is empty</div>
{{- else -}}
{{range .Items}}
<div class="cart-item">
  <span class="cart-item-name">{{.Name}}</span>
  <span class="cart-item-price">{{.Price}}</span>
  <button class="btn btn-sm btn-danger" data-action="cart-remove" data-index="{{.Index}}"><i class="fas fa-times"></i></button>
</div>
{{- end}}
{{- end}}
<div class="cart-total">Total: <span id="cart-total">{{.Total}}</span></div>
{{- end}}
`
