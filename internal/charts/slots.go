package charts

import (
	"watchingcat/internal/demo"
)

// Chart slots. A session holds at most one handle per slot.
const (
	SlotRequestVolume = "requestVolume"
	SlotLatency       = "latency"
	SlotCPU           = "cpu"
	SlotMemory        = "memory"
	SlotNetwork       = "network"
)

// Slots lists every known slot.
var Slots = []string{SlotRequestVolume, SlotLatency, SlotCPU, SlotMemory, SlotNetwork}

// IsSlot reports whether name is a known slot.
func IsSlot(name string) bool {
	for _, s := range Slots {
		if s == name {
			return true
		}
	}
	return false
}

const defaultPoints = 15

var serviceLabels = []string{"Frontend", "Cart", "Catalog", "Checkout"}

var serviceBarColors = []string{"#6366f1", "#10b981", "#f59e0b", "#ef4444"}

// RangePoints maps a time range selector to a point count.
func RangePoints(timeRange string) int {
	switch timeRange {
	case "5m":
		return 5
	case "15m":
		return 15
	case "1h":
		return 60
	default:
		return 24
	}
}

// NewRequestVolume builds the dashboard request volume chart.
func NewRequestVolume(g *demo.Generator) *Handle {
	return NewHandle(SlotRequestVolume, KindLine, "Request Volume", 0,
		g.TimeLabels(defaultPoints), requestVolumeSeries(g, defaultPoints))
}

// SetRequestVolumeRange regenerates the request volume chart for a time
// range, in place.
func SetRequestVolumeRange(h *Handle, g *demo.Generator, timeRange string) {
	n := RangePoints(timeRange)
	h.Update(g.TimeLabels(n), requestVolumeSeries(g, n))
}

func requestVolumeSeries(g *demo.Generator, n int) []Series {
	return []Series{{
		Name:   "Requests",
		Values: g.RandomSeries(n, 100, 200),
		Colors: []string{"#6366f1"},
		Fill:   true,
	}}
}

// NewLatency builds the dashboard latency percentile chart.
func NewLatency(g *demo.Generator) *Handle {
	return NewHandle(SlotLatency, KindLine, "Latency (ms)", 0,
		g.TimeLabels(defaultPoints), []Series{
			{Name: "P50", Values: g.RandomSeries(defaultPoints, 100, 150), Colors: []string{"#10b981"}},
			{Name: "P95", Values: g.RandomSeries(defaultPoints, 200, 300), Colors: []string{"#f59e0b"}},
			{Name: "P99", Values: g.RandomSeries(defaultPoints, 350, 500), Colors: []string{"#ef4444"}},
		})
}

// NewCPU builds the per-service CPU usage chart.
func NewCPU() *Handle {
	return NewHandle(SlotCPU, KindBar, "CPU Usage (%)", 100, serviceLabels, []Series{{
		Name:   "CPU Usage (%)",
		Values: []float64{45, 32, 28, 51},
		Colors: serviceBarColors,
	}})
}

// NewMemory builds the per-service memory chart.
func NewMemory() *Handle {
	return NewHandle(SlotMemory, KindBar, "Memory (MB)", 0, serviceLabels, []Series{{
		Name:   "Memory (MB)",
		Values: []float64{256, 128, 192, 384},
		Colors: serviceBarColors,
	}})
}

// NewNetwork builds the network throughput chart.
func NewNetwork(g *demo.Generator) *Handle {
	const points = 20
	return NewHandle(SlotNetwork, KindLine, "Throughput (MB/s)", 0,
		g.TimeLabels(points), []Series{{
			Name:   "Throughput (MB/s)",
			Values: g.RandomSeries(points, 10, 50),
			Colors: []string{"#6366f1"},
			Fill:   true,
		}})
}
