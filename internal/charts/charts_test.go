package charts

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchingcat/internal/demo"
)

func newGen() *demo.Generator {
	return demo.NewGenerator(7, func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) })
}

func TestRegistryKeepsOneHandlePerSlot(t *testing.T) {
	r := NewRegistry()
	g := newGen()
	builds := 0
	build := func() *Handle {
		builds++
		return NewRequestVolume(g)
	}

	h1, created := r.GetOrCreate(SlotRequestVolume, build)
	require.True(t, created)
	h2, created := r.GetOrCreate(SlotRequestVolume, build)
	assert.False(t, created)

	assert.Same(t, h1, h2)
	assert.Equal(t, 1, builds)
	assert.Equal(t, 1, r.Len())

	_, ok := r.Get(SlotCPU)
	assert.False(t, ok)
}

func TestSetRequestVolumeRangeMutatesInPlace(t *testing.T) {
	g := newGen()
	h := NewRequestVolume(g)
	require.Len(t, h.Labels(), 15)
	rev := h.Revision()

	for rng, want := range map[string]int{"5m": 5, "15m": 15, "1h": 60, "24h": 24, "": 24} {
		SetRequestVolumeRange(h, g, rng)
		assert.Len(t, h.Labels(), want, rng)
		series := h.Series()
		require.Len(t, series, 1)
		assert.Len(t, series[0].Values, want, rng)
	}
	assert.Equal(t, rev+5, h.Revision())
}

func TestFixedBarCharts(t *testing.T) {
	cpu := NewCPU()
	assert.Equal(t, KindBar, cpu.Kind())
	assert.Equal(t, []float64{45, 32, 28, 51}, cpu.Series()[0].Values)
	assert.Equal(t, []string{"Frontend", "Cart", "Catalog", "Checkout"}, cpu.Labels())

	mem := NewMemory()
	assert.Equal(t, []float64{256, 128, 192, 384}, mem.Series()[0].Values)
}

func TestLatencySeries(t *testing.T) {
	h := NewLatency(newGen())
	series := h.Series()
	require.Len(t, series, 3)
	for _, v := range series[2].Values {
		assert.GreaterOrEqual(t, v, 350.0)
		assert.LessOrEqual(t, v, 500.0)
	}
}

func TestRenderSVG(t *testing.T) {
	g := newGen()
	for _, h := range []*Handle{NewRequestVolume(g), NewLatency(g), NewCPU(), NewMemory(), NewNetwork(g)} {
		t.Run(h.Slot(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, h.RenderSVG(&buf))
			assert.Contains(t, buf.String(), "<svg")
		})
	}
}

func TestRenderSVGWithoutData(t *testing.T) {
	h := NewHandle("empty", KindLine, "", 0, nil, nil)
	var buf bytes.Buffer
	assert.Error(t, h.RenderSVG(&buf))
}

func TestIsSlot(t *testing.T) {
	assert.True(t, IsSlot(SlotNetwork))
	assert.False(t, IsSlot("disk"))
}
