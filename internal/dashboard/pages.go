package dashboard

import (
	"context"
	"fmt"

	"watchingcat/internal/charts"
	"watchingcat/internal/demo"
	"watchingcat/internal/state"
	"watchingcat/internal/view"
)

// Page is a dashboard page.
type Page string

const (
	PageDashboard Page = "dashboard"
	PageServices  Page = "services"
	PageTraces    Page = "traces"
	PageMetrics   Page = "metrics"
	PageShop      Page = "shop"
)

// Pages lists every page in navigation order.
var Pages = []Page{PageDashboard, PageServices, PageTraces, PageMetrics, PageShop}

// ParsePage validates a page name.
func ParsePage(name string) (Page, error) {
	for _, p := range Pages {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPage, name)
}

// Page regions. They belong to one session and are returned to it directly
// instead of going through the shared store.
const (
	RegionServiceDetails state.Region = "services-detail"
	RegionTraces         state.Region = "traces-list"
	RegionTopology       state.Region = "topology"
	RegionToolStats      state.Region = "tool-stats"
	RegionProducts       state.Region = "products"
	RegionCart           state.Region = "cart"
)

// ChartRegion returns the region holding the chart of slot.
func ChartRegion(slot string) state.Region {
	return state.Region("chart-" + slot)
}

// Navigate switches the session to page and runs that page's loader once.
func (c *Controller) Navigate(ctx context.Context, s *Session, name string) (Result, error) {
	page, err := ParsePage(name)
	if err != nil {
		return Result{}, err
	}
	s.setPage(page)

	res := newResult()
	res.Page = page
	switch page {
	case PageDashboard:
		err = c.loadDashboard(ctx, s, &res)
	case PageServices:
		err = c.loadServices(ctx, &res)
	case PageTraces:
		err = c.loadTraces(s, &res)
	case PageMetrics:
		err = c.loadMetrics(s, &res)
	case PageShop:
		err = c.loadShop(s, &res)
	}
	if err != nil {
		return Result{}, err
	}
	c.logDebug("Navigated", "session", s.ID(), "page", string(page))
	return res, nil
}

func (c *Controller) loadDashboard(ctx context.Context, s *Session, res *Result) error {
	// Fetch failures are already logged and reflected in the shared regions.
	_ = c.UpdateServices(ctx)
	_ = c.UpdateMetrics(ctx)
	for _, r := range []state.Region{state.RegionServices, state.RegionSystemStatus, state.RegionMetrics} {
		if html, ok := c.state.Region(r); ok {
			res.Regions[r] = html
		}
	}

	volume, _ := s.charts.GetOrCreate(charts.SlotRequestVolume, func() *charts.Handle {
		return charts.NewRequestVolume(c.gen)
	})
	latency, _ := s.charts.GetOrCreate(charts.SlotLatency, func() *charts.Handle {
		return charts.NewLatency(c.gen)
	})
	if err := c.putCharts(res, volume, latency); err != nil {
		return err
	}

	if err := c.putTopology(res); err != nil {
		return err
	}

	html, err := c.render.ToolStats(demo.DefaultToolStats())
	if err != nil {
		return err
	}
	res.Regions[RegionToolStats] = html
	return nil
}

func (c *Controller) loadServices(ctx context.Context, res *Result) error {
	services, err := c.backend.Services(ctx)
	if err != nil {
		c.logError("Failed to load services page", "error", err)
		html, rerr := c.render.ServiceGrid(view.FailedServiceGrid())
		if rerr != nil {
			return rerr
		}
		res.Regions[RegionServiceDetails] = html
		return nil
	}

	details := make([]view.ServiceDetail, 0, len(services))
	for _, svc := range services {
		details = append(details, view.BuildServiceDetail(svc, c.gen.ServiceStats()))
	}
	html, err := c.render.ServiceDetails(details)
	if err != nil {
		return err
	}
	res.Regions[RegionServiceDetails] = html
	return nil
}

const traceCount = 10

func (c *Controller) loadTraces(s *Session, res *Result) error {
	traces := c.gen.Traces(traceCount)
	s.setTraces(traces)
	html, err := c.render.TraceList(view.BuildTraceItems(traces, c.render.Location()))
	if err != nil {
		return err
	}
	res.Regions[RegionTraces] = html
	return nil
}

func (c *Controller) loadMetrics(s *Session, res *Result) error {
	cpu, _ := s.charts.GetOrCreate(charts.SlotCPU, charts.NewCPU)
	memory, _ := s.charts.GetOrCreate(charts.SlotMemory, charts.NewMemory)
	network, _ := s.charts.GetOrCreate(charts.SlotNetwork, func() *charts.Handle {
		return charts.NewNetwork(c.gen)
	})
	return c.putCharts(res, cpu, memory, network)
}

func (c *Controller) loadShop(s *Session, res *Result) error {
	html, err := c.render.Products(view.BuildProducts(c.catalog.Products()))
	if err != nil {
		return err
	}
	res.Regions[RegionProducts] = html
	return c.putCart(s, res)
}

func (c *Controller) putCharts(res *Result, handles ...*charts.Handle) error {
	for _, h := range handles {
		html, err := c.render.Chart(view.BuildChart(h))
		if err != nil {
			return err
		}
		res.Regions[ChartRegion(h.Slot())] = html
	}
	return nil
}

func (c *Controller) putTopology(res *Result) error {
	t, err := view.BuildTopology(c.topology)
	if err != nil {
		return err
	}
	html, err := c.render.Topology(t)
	if err != nil {
		return err
	}
	res.Regions[RegionTopology] = html
	return nil
}

func (c *Controller) putCart(s *Session, res *Result) error {
	html, err := c.render.Cart(view.BuildCart(s.cart.Items()))
	if err != nil {
		return err
	}
	res.Regions[RegionCart] = html
	return nil
}
