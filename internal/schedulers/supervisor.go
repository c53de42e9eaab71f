package schedulers

import (
	"context"
	"fmt"

	"github.com/metricmind/performancecore-backend/pkg/logger"
)

// Supervisor starts each scheduler behind its own failure boundary so one
// scheduler's startup failure never prevents the others from running.
type Supervisor struct {
	logg   *logger.Logger
	scheds []Scheduler
}

// NewSupervisor builds a supervisor over the given schedulers. Nil entries
// are skipped, which lets callers pass conditionally constructed schedulers.
func NewSupervisor(logg *logger.Logger, scheds ...Scheduler) *Supervisor {
	kept := make([]Scheduler, 0, len(scheds))
	for _, s := range scheds {
		if s == nil {
			continue
		}
		kept = append(kept, s)
	}
	return &Supervisor{logg: logg, scheds: kept}
}

// StartAll starts every scheduler, logging failures without aborting the
// rest.
func (s *Supervisor) StartAll(ctx context.Context) {
	for _, sched := range s.scheds {
		logCtx := s.logg.WithScheduler(ctx, sched.Name())
		if err := s.startOne(logCtx, sched); err != nil {
			s.logg.Error(logCtx, "scheduler failed to start", err)
			continue
		}
		s.logg.Info(logCtx, "scheduler started")
	}
}

func (s *Supervisor) startOne(ctx context.Context, sched Scheduler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return sched.Start(ctx)
}

// StopAll stops every scheduler.
func (s *Supervisor) StopAll() {
	for _, sched := range s.scheds {
		sched.Stop()
	}
}

// Statuses reads every scheduler's state.
func (s *Supervisor) Statuses() []Status {
	out := make([]Status, 0, len(s.scheds))
	for _, sched := range s.scheds {
		out = append(out, sched.Status())
	}
	return out
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("scheduler start panicked: %v", e.value)
}
