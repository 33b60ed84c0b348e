package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"watchingcat/internal/state"
	"watchingcat/internal/view"
)

// UpdateServices refreshes the service grid and the system status. On any
// backend failure the grid is replaced by the single error card, never left
// stale. A cancelled caller leaves the shared grid untouched.
func (c *Controller) UpdateServices(ctx context.Context) error {
	services, err := c.backend.Services(ctx)
	if err != nil {
		if abandoned(ctx) {
			c.logDebug("Services update abandoned", "error", err)
			return fmt.Errorf("update services: %w", err)
		}
		c.logError("Failed to update services", "error", err)
		if html, rerr := c.render.ServiceGrid(view.FailedServiceGrid()); rerr == nil {
			c.state.SetRegion(state.RegionServices, html)
		} else {
			c.logError("Failed to render service error card", "error", rerr)
		}
		return fmt.Errorf("update services: %w", err)
	}

	grid, err := c.render.ServiceGrid(view.BuildServiceGrid(services))
	if err != nil {
		return err
	}
	status, err := c.render.SystemStatus(view.BuildSystemStatus(services))
	if err != nil {
		return err
	}
	c.state.SetRegion(state.RegionServices, grid)
	c.state.SetRegion(state.RegionSystemStatus, status)
	c.logDebug("Services updated", "count", len(services))
	return nil
}

// UpdateMetrics refreshes the metric tiles. A failure leaves them stale.
func (c *Controller) UpdateMetrics(ctx context.Context) error {
	m, err := c.backend.Metrics(ctx)
	if err != nil {
		if abandoned(ctx) {
			c.logDebug("Metrics update abandoned", "error", err)
			return fmt.Errorf("update metrics: %w", err)
		}
		c.logError("Failed to update metrics", "error", err)
		return fmt.Errorf("update metrics: %w", err)
	}
	html, err := c.render.Metrics(view.BuildMetrics(m))
	if err != nil {
		return err
	}
	c.state.SetRegion(state.RegionMetrics, html)
	return nil
}

// UpdateLogs refreshes the log list. A failure leaves it stale.
func (c *Controller) UpdateLogs(ctx context.Context) error {
	logs, err := c.backend.Logs(ctx)
	if err != nil {
		if abandoned(ctx) {
			c.logDebug("Logs update abandoned", "error", err)
			return fmt.Errorf("update logs: %w", err)
		}
		c.logError("Failed to update logs", "error", err)
		return fmt.Errorf("update logs: %w", err)
	}
	html, err := c.render.Logs(view.BuildLogs(logs, c.render.Location()))
	if err != nil {
		return err
	}
	c.state.SetRegion(state.RegionLogs, html)
	return nil
}

// UpdateLastUpdated stamps the current time.
func (c *Controller) UpdateLastUpdated() error {
	html, err := c.render.LastUpdated(c.now())
	if err != nil {
		return err
	}
	c.state.SetRegion(state.RegionLastUpdated, html)
	return nil
}

// Refresh runs one refresh cycle: the three updaters concurrently, then the
// timestamp and session eviction. The returned error joins every updater
// failure.
func (c *Controller) Refresh(ctx context.Context) error {
	c.state.SetRefreshStarted()
	defer c.state.SetRefreshFinished()

	updaters := []func(context.Context) error{c.UpdateServices, c.UpdateMetrics, c.UpdateLogs}
	errs := make([]error, len(updaters))

	var wg sync.WaitGroup
	for i, update := range updaters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = update(ctx)
		}()
	}
	wg.Wait()

	if err := c.UpdateLastUpdated(); err != nil {
		errs = append(errs, err)
	}
	c.EvictIdle()
	return errors.Join(errs...)
}

// abandoned reports whether the caller gave up on ctx (request gone, poller
// stopped). Backend timeouts come from the HTTP client and do not set ctx.Err.
func abandoned(ctx context.Context) bool {
	return ctx.Err() != nil
}
