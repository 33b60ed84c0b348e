package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchingcat/internal/metrics"
)

const waitFor = 2 * time.Second

func TestFirstCycleRunsImmediately(t *testing.T) {
	var calls atomic.Int32
	p := New(time.Hour, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, time.Millisecond)
}

func TestTickerRepeats(t *testing.T) {
	var calls atomic.Int32
	p := New(5*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, waitFor, time.Millisecond)
}

func TestOverlappingTicksAreSkipped(t *testing.T) {
	m := metrics.Discard()
	release := make(chan struct{})
	var calls atomic.Int32
	p := New(time.Millisecond, func(context.Context) error {
		calls.Add(1)
		<-release
		return nil
	}, WithMetrics(m))
	p.Start(context.Background())

	require.Eventually(t, func() bool { return testutil.ToFloat64(m.RefreshSkipped) >= 3 }, waitFor, time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, p.Running())
	assert.False(t, p.Trigger())

	close(release)
	p.Stop()
	assert.False(t, p.Running())
}

func TestTriggerRunsExtraCycle(t *testing.T) {
	m := metrics.Discard()
	var calls atomic.Int32
	p := New(time.Hour, func(context.Context) error {
		if calls.Add(1) == 2 {
			return errors.New("backend down")
		}
		return nil
	}, WithMetrics(m))

	assert.False(t, p.Trigger(), "not started")
	assert.False(t, p.Accepting())

	p.Start(context.Background())
	defer p.Stop()
	assert.True(t, p.Accepting())
	require.Eventually(t, func() bool { return calls.Load() == 1 && !p.Running() }, waitFor, time.Millisecond)

	require.True(t, p.Trigger())
	require.Eventually(t, func() bool { return calls.Load() == 2 && !p.Running() }, waitFor, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshCycles.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshCycles.WithLabelValues("error")))
}

func TestStopWaitsForInFlightCycle(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	p := New(time.Hour, func(ctx context.Context) error {
		close(started)
		<-release
		finished.Store(true)
		return nil
	})
	p.Start(context.Background())
	<-started

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a cycle was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(waitFor):
		t.Fatal("Stop did not return")
	}
	assert.True(t, finished.Load())
}

func TestStopIsIdempotent(t *testing.T) {
	var calls atomic.Int32
	p := New(time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	p.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, waitFor, time.Millisecond)

	p.Stop()
	p.Stop()
	n := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, calls.Load())
	assert.False(t, p.Trigger())
}

func TestStopBeforeStart(t *testing.T) {
	p := New(time.Millisecond, func(context.Context) error { return nil })
	p.Stop()
	p.Start(context.Background())
	assert.False(t, p.Trigger())
	assert.False(t, p.Accepting())
}

func TestCancelledContextStopsLoop(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	p := New(time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	p.Start(ctx)
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, waitFor, time.Millisecond)

	cancel()
	p.Stop()
	n := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, calls.Load())
}
