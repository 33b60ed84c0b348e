package web

import (
	"fmt"
	"net/http"
	"strings"

	"watchingcat/internal/dashboard"
)

// handleUI serves the dashboard shell. Region contents arrive over /ws and
// from the action endpoints.
func (s *Server) handleUI(w http.ResponseWriter, r *http.Request, _ *dashboard.Session) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, strings.ReplaceAll(uiHTML, "{{APP_VERSION}}", s.version))
}

const uiHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>WatchingCat</title>
<link rel="stylesheet" href="https://cdnjs.cloudflare.com/ajax/libs/font-awesome/6.5.1/css/all.min.css">
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  :root {
    --bg: #f8fafc; --card: #ffffff; --text: #0f172a; --text-secondary: #64748b;
    --border: #e2e8f0; --primary: #6366f1; --success: #10b981; --warning: #f59e0b; --danger: #ef4444;
  }
  body.dark {
    --bg: #0f172a; --card: #1e293b; --text: #f1f5f9; --text-secondary: #94a3b8; --border: #334155;
  }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    background: var(--bg);
    color: var(--text);
    min-height: 100vh;
    display: flex;
  }
  nav.sidebar { width: 220px; background: var(--card); border-right: 1px solid var(--border); padding: 24px 12px; }
  nav.sidebar h1 { font-size: 20px; margin: 0 12px 24px; }
  nav.sidebar h1 span { color: var(--primary); }
  nav.sidebar a {
    display: block; padding: 10px 12px; border-radius: 8px; color: var(--text-secondary);
    text-decoration: none; cursor: pointer; margin-bottom: 4px;
  }
  nav.sidebar a.active, nav.sidebar a:hover { background: var(--bg); color: var(--primary); }
  main { flex: 1; padding: 24px; overflow-x: hidden; }
  .header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 24px; }
  .header-buttons { display: flex; gap: 8px; align-items: center; }
  .btn {
    border: 1px solid var(--border); background: var(--card); color: var(--text);
    padding: 8px 16px; border-radius: 8px; font-size: 14px; cursor: pointer; text-decoration: none;
  }
  .btn-primary { background: var(--primary); border-color: var(--primary); color: #fff; }
  .btn-danger { background: var(--danger); border-color: var(--danger); color: #fff; }
  .btn-sm { padding: 4px 8px; font-size: 12px; }
  .btn-block { width: 100%; }
  .page { display: none; }
  .page.active { display: block; }
  .grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(240px, 1fr)); gap: 16px; margin-bottom: 24px; }
  .panel { background: var(--card); border: 1px solid var(--border); border-radius: 12px; padding: 16px; margin-bottom: 24px; }
  .panel h2 { font-size: 16px; margin-bottom: 12px; }
  .service-card, .service-detail-card, .product-card, .metric-card, .trace-item {
    background: var(--card); border: 1px solid var(--border); border-radius: 12px; padding: 16px;
  }
  .service-card.healthy { border-left: 4px solid var(--success); }
  .service-card.unhealthy { border-left: 4px solid var(--danger); }
  .service-url, .log-timestamp, .trace-meta { color: var(--text-secondary); font-size: 12px; }
  .service-badge.healthy, .status-badge.running { color: var(--success); font-weight: 600; }
  .service-badge.unhealthy { color: var(--danger); font-weight: 600; }
  .status-badge.stopped { color: var(--text-secondary); }
  .service-stats { display: flex; gap: 16px; margin-top: 12px; }
  .service-stat-value, .metric-value { font-size: 22px; font-weight: 700; }
  .service-stat-label, .metric-label { font-size: 12px; color: var(--text-secondary); }
  #metrics { display: grid; grid-template-columns: repeat(5, 1fr); gap: 16px; }
  .status-indicator { display: inline-block; width: 10px; height: 10px; border-radius: 50%; margin-right: 8px; }
  .status-indicator.healthy { background: var(--success); }
  .status-indicator.degraded { background: var(--warning); }
  .status-indicator.down { background: var(--danger); }
  #logs { max-height: 360px; overflow-y: auto; font-family: monospace; font-size: 13px; }
  .log-entry { padding: 6px 0; border-bottom: 1px solid var(--border); }
  .log-level { font-weight: 700; text-transform: uppercase; margin: 0 6px; }
  .log-level.error { color: var(--danger); }
  .log-level.warn { color: var(--warning); }
  .log-level.info { color: var(--primary); }
  .chart-img { width: 100%; }
  .tool-stat { display: inline-block; margin-right: 24px; }
  .tool-stat-value { font-weight: 700; font-size: 18px; }
  .trace-item { cursor: pointer; margin-bottom: 8px; }
  .trace-header { display: flex; justify-content: space-between; font-family: monospace; }
  .trace-service-badge { display: inline-block; background: var(--bg); border-radius: 4px; padding: 2px 6px; margin: 4px 4px 0 0; font-size: 12px; }
  .modal-backdrop { position: fixed; inset: 0; background: rgba(15, 23, 42, 0.6); display: none; align-items: center; justify-content: center; z-index: 50; }
  .modal-backdrop.open { display: flex; }
  #trace-modal { background: var(--card); border-radius: 12px; padding: 24px; width: min(960px, 95vw); max-height: 90vh; overflow-y: auto; }
  .trace-modal-header { display: flex; justify-content: space-between; margin-bottom: 16px; }
  .trace-summary { display: flex; gap: 24px; margin-bottom: 16px; }
  .span-row { display: grid; grid-template-columns: 240px 1fr; gap: 8px; padding: 6px 0; border-bottom: 1px solid var(--border); }
  .span-bar-container { position: relative; height: 24px; background: var(--bg); border-radius: 4px; }
  .span-bar { position: absolute; top: 2px; bottom: 2px; border-radius: 4px; color: #fff; font-size: 11px; padding-left: 4px; line-height: 20px; overflow: hidden; }
  .span-tags { grid-column: 1 / -1; font-size: 11px; color: var(--text-secondary); }
  .span-tag { margin-right: 12px; }
  .trace-actions { display: flex; justify-content: flex-end; gap: 8px; margin-top: 16px; }
  .product-image { font-size: 4rem; text-align: center; }
  .product-price { font-weight: 700; margin: 8px 0; }
  .shop-layout { display: grid; grid-template-columns: 1fr 300px; gap: 24px; }
  .cart-item { display: flex; justify-content: space-between; align-items: center; padding: 6px 0; border-bottom: 1px solid var(--border); }
  .cart-empty { text-align: center; color: var(--text-secondary); padding: 2rem; }
  .cart-total { font-weight: 700; margin: 12px 0; }
  #toasts { position: fixed; top: 20px; right: 20px; display: flex; flex-direction: column; gap: 8px; z-index: 100; }
  .toast { padding: 12px 20px; border-radius: 8px; color: #fff; box-shadow: 0 4px 12px rgba(0,0,0,0.15); }
  .toast.success { background: var(--success); }
  .toast.error { background: var(--danger); }
  .toast.warning { background: var(--warning); }
  .toast.info { background: var(--primary); }
  footer { color: var(--text-secondary); font-size: 12px; margin-top: 24px; }
</style>
</head>
<body>
<nav class="sidebar">
  <h1>Watching<span>Cat</span></h1>
  <a data-page="dashboard" class="active"><i class="fas fa-gauge"></i> Dashboard</a>
  <a data-page="services"><i class="fas fa-server"></i> Services</a>
  <a data-page="traces"><i class="fas fa-project-diagram"></i> Traces</a>
  <a data-page="metrics"><i class="fas fa-chart-line"></i> Metrics</a>
  <a data-page="shop"><i class="fas fa-shopping-cart"></i> Shop</a>
</nav>
<main>
  <div class="header">
    <div id="system-status"></div>
    <div class="header-buttons">
      <span>Load generator: <span id="loadgen-status"></span></span>
      <button class="btn" data-action="loadgen-start"><i class="fas fa-play"></i> Start</button>
      <button class="btn" data-action="loadgen-stop"><i class="fas fa-stop"></i> Stop</button>
      <select id="time-range" class="btn">
        <option value="5m">5m</option>
        <option value="15m" selected>15m</option>
        <option value="1h">1h</option>
        <option value="24h">24h</option>
      </select>
      <button class="btn" data-action="theme"><i class="fas fa-moon"></i></button>
      <button class="btn btn-primary" data-action="refresh"><i class="fas fa-sync-alt"></i> Refresh</button>
    </div>
  </div>

  <section class="page active" id="page-dashboard">
    <div id="metrics" class="panel"></div>
    <div class="grid" id="services-grid"></div>
    <div class="grid">
      <div class="panel"><h2>Request Volume</h2><div id="chart-requestVolume"></div></div>
      <div class="panel"><h2>Latency</h2><div id="chart-latency"></div></div>
    </div>
    <div class="panel">
      <h2>Service Topology <button class="btn btn-sm" data-action="topology-reset">Reset</button></h2>
      <div id="topology"></div>
    </div>
    <div class="panel"><h2>Observability Tools</h2><div id="tool-stats"></div></div>
    <div class="panel"><h2>Recent Logs</h2><div id="logs"></div></div>
  </section>

  <section class="page" id="page-services">
    <div class="grid" id="services-detail"></div>
  </section>

  <section class="page" id="page-traces">
    <div class="panel">
      <input id="trace-service" class="btn" placeholder="Service">
      <button class="btn btn-primary" data-action="trace-search"><i class="fas fa-search"></i> Search</button>
    </div>
    <div id="traces-list"></div>
  </section>

  <section class="page" id="page-metrics">
    <div class="grid">
      <div class="panel"><h2>CPU</h2><div id="chart-cpu"></div></div>
      <div class="panel"><h2>Memory</h2><div id="chart-memory"></div></div>
    </div>
    <div class="panel"><h2>Network</h2><div id="chart-network"></div></div>
  </section>

  <section class="page" id="page-shop">
    <div class="shop-layout">
      <div class="grid" id="products"></div>
      <div class="panel">
        <h2>Cart</h2>
        <div id="cart"></div>
        <button class="btn btn-primary btn-block" data-action="checkout">Checkout</button>
      </div>
    </div>
  </section>

  <footer>Last updated: <span id="last-updated">--</span> · <span id="footer"></span></footer>
</main>

<div class="modal-backdrop" id="trace-modal-backdrop"><div id="trace-modal"></div></div>
<div id="toasts"></div>

<script>
(function() {
  var appVersion = '{{APP_VERSION}}';
  document.getElementById('footer').textContent = 'WatchingCat ' + appVersion;
  var ws = null;
  var wsReconnectDelay = 1000;

  function applyRegions(regions) {
    if (!regions) return;
    Object.keys(regions).forEach(function(id) {
      var el = document.getElementById(id);
      if (el) el.innerHTML = regions[id];
    });
  }

  function showToast(message, kind) {
    var el = document.createElement('div');
    el.className = 'toast ' + (kind || 'info');
    el.textContent = message;
    document.getElementById('toasts').appendChild(el);
    setTimeout(function() { el.remove(); }, 3000);
  }

  function post(path, body) {
    return fetch(path, {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(body || {})
    }).then(function(resp) {
      return resp.json().catch(function() { return {}; }).then(function(data) {
        applyRegions(data.regions);
        if (data.toast) showToast(data.toast.message, data.toast.kind);
        if (!resp.ok && data.error) showToast(data.error, 'error');
        return data;
      });
    }).catch(function(e) {
      console.error('Request failed:', path, e);
    });
  }

  function navigate(page) {
    document.querySelectorAll('nav.sidebar a').forEach(function(a) {
      a.classList.toggle('active', a.dataset.page === page);
    });
    document.querySelectorAll('.page').forEach(function(p) {
      p.classList.toggle('active', p.id === 'page-' + page);
    });
    post('/api/navigate', { page: page });
  }

  function openTrace(id) {
    fetch('/api/traces/' + encodeURIComponent(id)).then(function(resp) {
      if (!resp.ok) { showToast('Trace not found', 'error'); return null; }
      return resp.text();
    }).then(function(html) {
      if (html === null) return;
      document.getElementById('trace-modal').innerHTML = html;
      document.getElementById('trace-modal-backdrop').classList.add('open');
    });
  }

  function closeTrace() {
    document.getElementById('trace-modal-backdrop').classList.remove('open');
  }

  document.addEventListener('click', function(e) {
    var link = e.target.closest('nav.sidebar a');
    if (link) { navigate(link.dataset.page); return; }
    var el = e.target.closest('[data-action]');
    if (!el) return;
    switch (el.dataset.action) {
      case 'refresh':
        post('/api/refresh');
        break;
      case 'loadgen-start':
        post('/api/loadgen/start');
        break;
      case 'loadgen-stop':
        post('/api/loadgen/stop');
        break;
      case 'cart-add':
        post('/api/cart/add', { productId: parseInt(el.dataset.id, 10) });
        break;
      case 'cart-remove':
        post('/api/cart/remove', { index: parseInt(el.dataset.index, 10) });
        break;
      case 'checkout':
        post('/api/checkout');
        break;
      case 'trace-search':
        post('/api/traces/search', { service: document.getElementById('trace-service').value });
        break;
      case 'trace-open':
        openTrace(el.dataset.id);
        break;
      case 'trace-close':
        closeTrace();
        break;
      case 'topology-reset':
        post('/api/topology/reset');
        break;
      case 'theme':
        var dark = document.body.classList.toggle('dark');
        showToast('Switched to ' + (dark ? 'dark' : 'light') + ' theme', 'info');
        break;
    }
  });

  document.getElementById('time-range').addEventListener('change', function(e) {
    post('/api/charts/range', { range: e.target.value });
  });

  document.getElementById('trace-modal-backdrop').addEventListener('click', function(e) {
    if (e.target.id === 'trace-modal-backdrop') closeTrace();
  });

  function connectWebSocket() {
    var proto = window.location.protocol === 'https:' ? 'wss:' : 'ws:';
    try {
      ws = new WebSocket(proto + '//' + window.location.host + '/ws');

      ws.onopen = function() {
        wsReconnectDelay = 1000; // Reset reconnect delay on successful connection
      };

      ws.onmessage = function(event) {
        try {
          var msg = JSON.parse(event.data);
          if (msg.type === 'regions') applyRegions(msg.regions);
        } catch(e) {
          console.error('Failed to parse message:', e);
        }
      };

      ws.onclose = function() {
        ws = null;
        // Exponential backoff with max 10 seconds
        wsReconnectDelay = Math.min(wsReconnectDelay * 1.5, 10000);
        setTimeout(connectWebSocket, wsReconnectDelay);
      };
    } catch(e) {
      console.error('Failed to create WebSocket:', e);
      setTimeout(connectWebSocket, wsReconnectDelay);
    }
  }

  connectWebSocket();
  navigate('dashboard');
})();
</script>
</body>
</html>
`
