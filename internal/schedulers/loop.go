package schedulers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/metricmind/performancecore-backend/pkg/logger"
)

// Loop drives a cycle function on a fixed cadence. The first cycle runs
// immediately on Start, then one per interval. A tick that arrives while the
// previous cycle is still in flight is skipped and logged rather than
// overlapped.
type Loop struct {
	name  string
	logg  *logger.Logger
	cycle func(ctx context.Context)

	mu       sync.Mutex
	interval time.Duration
	running  bool
	baseCtx  context.Context
	cancel   context.CancelFunc
	nextRun  time.Time

	inFlight atomic.Bool
}

// NewLoop builds a loop; it does not start it.
func NewLoop(name string, interval time.Duration, logg *logger.Logger, cycle func(ctx context.Context)) *Loop {
	return &Loop{name: name, logg: logg, cycle: cycle, interval: interval}
}

// Start launches the loop goroutine. Starting an already-running loop is a
// logged no-op, so at most one timer exists per loop.
func (l *Loop) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		l.logg.Info(l.logg.WithScheduler(ctx, l.name), "scheduler already running; start ignored")
		return
	}
	tickCtx, cancel := context.WithCancel(ctx)
	l.baseCtx = ctx
	l.cancel = cancel
	l.running = true
	l.nextRun = time.Now()
	// Stop cancels tickCtx only; cycles run under the caller's context so an
	// in-flight cycle survives Stop and SetInterval restarts.
	go l.run(tickCtx, ctx, l.interval)
}

// Stop cancels future cycles. An in-flight cycle runs to completion.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.cancel()
	l.running = false
	l.nextRun = time.Time{}
}

// SetInterval changes the cadence. A running loop restarts with the new
// interval, which fires an immediate extra cycle.
func (l *Loop) SetInterval(interval time.Duration) {
	l.mu.Lock()
	l.interval = interval
	wasRunning := l.running
	base := l.baseCtx
	l.mu.Unlock()

	if wasRunning {
		l.Stop()
		l.Start(base)
	}
}

// Running reports whether the loop is started.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// NextRun returns the next scheduled cycle time, or nil when stopped.
func (l *Loop) NextRun() *time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running || l.nextRun.IsZero() {
		return nil
	}
	next := l.nextRun
	return &next
}

func (l *Loop) run(tickCtx, cycleCtx context.Context, interval time.Duration) {
	l.runOnce(cycleCtx)
	l.setNextRun(time.Now().Add(interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-tickCtx.Done():
			l.logg.Info(l.logg.WithScheduler(cycleCtx, l.name), "scheduler loop stopped")
			return
		case <-ticker.C:
			l.runOnce(cycleCtx)
			l.setNextRun(time.Now().Add(interval))
		}
	}
}

func (l *Loop) runOnce(ctx context.Context) {
	if !l.inFlight.CompareAndSwap(false, true) {
		l.logg.Warn(l.logg.WithScheduler(ctx, l.name), "previous cycle still in flight; skipping this tick")
		return
	}
	defer l.inFlight.Store(false)
	l.cycle(ctx)
}

func (l *Loop) setNextRun(at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		l.nextRun = at
	}
}
