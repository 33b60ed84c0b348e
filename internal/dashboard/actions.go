package dashboard

import (
	"context"
	"fmt"
	"io"

	"watchingcat/internal/backend"
	"watchingcat/internal/charts"
	"watchingcat/internal/state"
	"watchingcat/internal/view"
)

// ============================================================
// Shop
// ============================================================

// AddToCart appends a product to the session cart. Unknown ids are a no-op.
func (c *Controller) AddToCart(s *Session, productID int) (Result, error) {
	res := newResult()
	p, ok := c.catalog.Lookup(productID)
	if !ok {
		c.logDebug("Ignoring unknown product", "id", productID)
		return res, nil
	}
	s.cart.Add(p)
	if err := c.putCart(s, &res); err != nil {
		return Result{}, err
	}
	res.toast(view.ToastSuccess, "Added %s to cart", p.Name)
	return res, nil
}

// RemoveFromCart drops the item at index. Out-of-range indexes leave the
// cart unchanged.
func (c *Controller) RemoveFromCart(s *Session, index int) (Result, error) {
	res := newResult()
	s.cart.Remove(index)
	if err := c.putCart(s, &res); err != nil {
		return Result{}, err
	}
	return res, nil
}

// Checkout clears a non-empty cart.
func (c *Controller) Checkout(s *Session) (Result, error) {
	res := newResult()
	if s.cart.Len() == 0 {
		res.toast(view.ToastWarning, "Cart is empty")
		return res, nil
	}
	total := s.cart.TotalCents()
	n := s.cart.Clear()
	if err := c.putCart(s, &res); err != nil {
		return Result{}, err
	}
	c.logInfo("Order placed", "session", s.ID(), "items", n, "total", total)
	res.toast(view.ToastSuccess, "Order placed successfully! Check traces in Jaeger")
	return res, nil
}

// ============================================================
// Load generator
// ============================================================

// StartLoadGen asks the backend to start the load generator.
func (c *Controller) StartLoadGen(ctx context.Context) Result {
	return c.toggleLoadGen(ctx, true)
}

// StopLoadGen asks the backend to stop the load generator.
func (c *Controller) StopLoadGen(ctx context.Context) Result {
	return c.toggleLoadGen(ctx, false)
}

// toggleLoadGen issues one call. The label only moves when the answer is
// newer than the last applied one, so it follows the newest issued call
// whatever order the answers arrive in. Failures only produce a toast.
func (c *Controller) toggleLoadGen(ctx context.Context, start bool) Result {
	res := newResult()
	seq := c.state.NextLoadGenSeq()

	verb, call, want, status := "stop", c.backend.StopLoadGen, backend.LoadGenStopped, state.LoadGenStopped
	if start {
		verb, call, want, status = "start", c.backend.StartLoadGen, backend.LoadGenStarted, state.LoadGenRunning
	}

	resp, err := call(ctx)
	if err != nil {
		c.logError("Load generator call failed", "action", verb, "error", err)
		res.toast(view.ToastError, "Failed to %s load generator", verb)
		return res
	}
	if resp.Status != want {
		c.logError("Unexpected load generator status", "action", verb, "status", resp.Status)
		return res
	}

	if c.state.ApplyLoadGen(seq, status) {
		if err := c.publishLoadGen(); err != nil {
			c.logError("Failed to render load generator status", "error", err)
		}
		if html, ok := c.state.Region(state.RegionLoadGen); ok {
			res.Regions[state.RegionLoadGen] = html
		}
	} else {
		c.logDebug("Dropped stale load generator answer", "action", verb, "seq", seq)
	}

	if start {
		res.toast(view.ToastSuccess, "Load generator started")
	} else {
		res.toast(view.ToastInfo, "Load generator stopped")
	}
	c.logInfo("Load generator toggled", "action", verb)
	return res
}

func (c *Controller) publishLoadGen() error {
	st := c.state.LoadGen()
	html, err := c.render.LoadGen(view.LoadGen{
		Known:   st != state.LoadGenUnknown,
		Running: st == state.LoadGenRunning,
	})
	if err != nil {
		return err
	}
	c.state.SetRegion(state.RegionLoadGen, html)
	return nil
}

// ============================================================
// Traces
// ============================================================

// SearchTraces regenerates the session's trace list.
func (c *Controller) SearchTraces(s *Session, service string) (Result, error) {
	res := newResult()
	if err := c.loadTraces(s, &res); err != nil {
		return Result{}, err
	}
	if service != "" {
		res.toast(view.ToastInfo, "Searching traces for %s...", service)
	} else {
		res.toast(view.ToastInfo, "Searching traces...")
	}
	return res, nil
}

// TraceDetails renders the modal of a trace listed on the session's traces
// page. Spans are fabricated on every call.
func (c *Controller) TraceDetails(s *Session, traceID string) (string, error) {
	t, ok := s.trace(traceID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTraceNotFound, traceID)
	}
	modal := view.BuildTraceModal(t, c.gen.Spans(t), c.jaegerURL, c.render.Location())
	return c.render.TraceModal(modal)
}

// ============================================================
// Charts and topology
// ============================================================

// SetTimeRange regenerates the request volume chart for timeRange in place.
func (c *Controller) SetTimeRange(s *Session, timeRange string) (Result, error) {
	res := newResult()
	h, _ := s.charts.GetOrCreate(charts.SlotRequestVolume, func() *charts.Handle {
		return charts.NewRequestVolume(c.gen)
	})
	charts.SetRequestVolumeRange(h, c.gen, timeRange)
	if err := c.putCharts(&res, h); err != nil {
		return Result{}, err
	}
	res.toast(view.ToastInfo, "Updated charts to %s", timeRange)
	return res, nil
}

// ChartSVG renders a chart handle of the session.
func (c *Controller) ChartSVG(s *Session, slot string, w io.Writer) error {
	h, ok := s.charts.Get(slot)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChart, slot)
	}
	return h.RenderSVG(w)
}

// ResetTopology redraws the service diagram.
func (c *Controller) ResetTopology() (Result, error) {
	res := newResult()
	if err := c.putTopology(&res); err != nil {
		return Result{}, err
	}
	res.toast(view.ToastInfo, "Topology view reset")
	return res, nil
}
