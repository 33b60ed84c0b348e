package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"watchingcat/internal/charts"
	"watchingcat/internal/dashboard"
	"watchingcat/internal/view"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err, "component", "Web")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// resultOrError writes an action result, mapping controller errors to
// HTTP statuses.
func resultOrError(w http.ResponseWriter, res dashboard.Result, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, dashboard.ErrUnknownPage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dashboard.ErrTraceNotFound), errors.Is(err, dashboard.ErrUnknownChart):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("Action failed", "error", err, "component", "Web")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// handleState returns the current application state as JSON.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.appState.Snapshot())
}

// handleRefresh triggers a refresh cycle outside the schedule.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.refresher == nil || !s.refresher.Accepting() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "stopped",
			"error":  "Refresh loop is not running",
		})
		return
	}
	if !s.refresher.Trigger() {
		writeJSON(w, http.StatusConflict, map[string]any{
			"status": "already running",
			"toast":  view.Toast{Message: "Refresh already in progress", Kind: view.ToastWarning},
		})
		return
	}
	slog.Info("Refresh triggered", "trigger", "web UI", "component", "Web")
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "triggered",
		"toast":  view.Toast{Message: "Refreshing dashboard...", Kind: view.ToastInfo},
	})
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Page string `json:"page"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	res, err := s.ctrl.Navigate(r.Context(), sess, req.Page)
	resultOrError(w, res, err)
}

func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ProductID int `json:"productId"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	res, err := s.ctrl.AddToCart(sess, req.ProductID)
	resultOrError(w, res, err)
}

func (s *Server) handleCartRemove(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Index int `json:"index"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	res, err := s.ctrl.RemoveFromCart(sess, req.Index)
	resultOrError(w, res, err)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	res, err := s.ctrl.Checkout(sess)
	resultOrError(w, res, err)
}

func (s *Server) handleLoadGenStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.StartLoadGen(r.Context()))
}

func (s *Server) handleLoadGenStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.StopLoadGen(r.Context()))
}

func (s *Server) handleTraceSearch(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Service string `json:"service"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	res, err := s.ctrl.SearchTraces(sess, strings.TrimSpace(req.Service))
	resultOrError(w, res, err)
}

// handleTraceDetails returns the trace modal as an HTML fragment.
func (s *Server) handleTraceDetails(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	html, err := s.ctrl.TraceDetails(sess, r.PathValue("id"))
	if err != nil {
		resultOrError(w, dashboard.Result{}, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

func (s *Server) handleChartRange(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Range string `json:"range"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	res, err := s.ctrl.SetTimeRange(sess, req.Range)
	resultOrError(w, res, err)
}

func (s *Server) handleTopologyReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	res, err := s.ctrl.ResetTopology()
	resultOrError(w, res, err)
}

// handleChartSVG renders one of the session's chart handles.
func (s *Server) handleChartSVG(w http.ResponseWriter, r *http.Request, sess *dashboard.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	slot, ok := strings.CutSuffix(r.PathValue("file"), ".svg")
	if !ok || !charts.IsSlot(slot) {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if err := s.ctrl.ChartSVG(sess, slot, &buf); err != nil {
		if errors.Is(err, dashboard.ErrUnknownChart) {
			http.NotFound(w, r)
			return
		}
		slog.Error("Chart render failed", "slot", slot, "error", err, "component", "Web")
		http.Error(w, "Chart render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}
