package schedulers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/metricmind/performancecore-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func TestLoopRunsImmediatelyAndOnTicks(t *testing.T) {
	var cycles atomic.Int64
	loop := NewLoop("test", 30*time.Millisecond, testLogger(), func(context.Context) {
		cycles.Add(1)
	})

	loop.Start(context.Background())
	defer loop.Stop()

	time.Sleep(10 * time.Millisecond)
	if got := cycles.Load(); got != 1 {
		t.Fatalf("expected immediate first cycle, got %d", got)
	}

	time.Sleep(100 * time.Millisecond)
	if got := cycles.Load(); got < 3 {
		t.Fatalf("expected ticks to fire more cycles, got %d", got)
	}
}

func TestLoopStartIsIdempotent(t *testing.T) {
	var cycles atomic.Int64
	loop := NewLoop("test", time.Hour, testLogger(), func(context.Context) {
		cycles.Add(1)
	})

	loop.Start(context.Background())
	loop.Start(context.Background())
	defer loop.Stop()

	time.Sleep(50 * time.Millisecond)
	if got := cycles.Load(); got != 1 {
		t.Fatalf("double start should keep a single timer, got %d cycles", got)
	}
	if !loop.Running() {
		t.Fatalf("loop should report running")
	}
}

func TestLoopNeverOverlapsCycles(t *testing.T) {
	var active atomic.Int64
	var overlapped atomic.Bool
	loop := NewLoop("test", 10*time.Millisecond, testLogger(), func(context.Context) {
		if active.Add(1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(35 * time.Millisecond)
		active.Add(-1)
	})

	loop.Start(context.Background())
	time.Sleep(120 * time.Millisecond)
	loop.Stop()

	if overlapped.Load() {
		t.Fatalf("ticks during an in-flight cycle must be skipped, not overlapped")
	}
}

func TestLoopStopClearsNextRun(t *testing.T) {
	loop := NewLoop("test", time.Hour, testLogger(), func(context.Context) {})

	if loop.NextRun() != nil {
		t.Fatalf("stopped loop should have no next run")
	}

	loop.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	if loop.NextRun() == nil {
		t.Fatalf("running loop should expose its next run")
	}

	loop.Stop()
	if loop.NextRun() != nil {
		t.Fatalf("next run should clear on stop")
	}
	if loop.Running() {
		t.Fatalf("loop should report stopped")
	}
}

func TestLoopStopLetsInFlightCycleFinish(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var cancelled atomic.Bool
	var completed atomic.Bool
	loop := NewLoop("test", time.Hour, testLogger(), func(ctx context.Context) {
		close(started)
		<-release
		select {
		case <-ctx.Done():
			cancelled.Store(true)
		default:
		}
		completed.Store(true)
	})

	loop.Start(context.Background())
	<-started
	loop.Stop()
	close(release)

	time.Sleep(20 * time.Millisecond)
	if !completed.Load() {
		t.Fatalf("in-flight cycle should run to completion after Stop")
	}
	if cancelled.Load() {
		t.Fatalf("Stop must not cancel the in-flight cycle's context")
	}
}

func TestLoopSetIntervalKeepsInFlightCycleAlive(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var cancelled atomic.Bool
	var first atomic.Bool
	loop := NewLoop("test", time.Hour, testLogger(), func(ctx context.Context) {
		if !first.CompareAndSwap(false, true) {
			return
		}
		close(started)
		<-release
		select {
		case <-ctx.Done():
			cancelled.Store(true)
		default:
		}
	})

	loop.Start(context.Background())
	<-started
	loop.SetInterval(30 * time.Minute)
	defer loop.Stop()
	close(release)

	time.Sleep(20 * time.Millisecond)
	if cancelled.Load() {
		t.Fatalf("reconfigure must not cancel the in-flight cycle's context")
	}
}

func TestLoopSetIntervalRestartsRunningLoop(t *testing.T) {
	var cycles atomic.Int64
	loop := NewLoop("test", time.Hour, testLogger(), func(context.Context) {
		cycles.Add(1)
	})

	loop.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	if got := cycles.Load(); got != 1 {
		t.Fatalf("expected one cycle before reconfigure, got %d", got)
	}

	// Restart fires an immediate extra cycle on the new cadence.
	loop.SetInterval(time.Hour)
	defer loop.Stop()
	time.Sleep(20 * time.Millisecond)
	if got := cycles.Load(); got != 2 {
		t.Fatalf("expected an immediate cycle after reconfigure, got %d", got)
	}
	if !loop.Running() {
		t.Fatalf("loop should stay running across reconfigure")
	}
}
