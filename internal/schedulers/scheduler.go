package schedulers

import (
	"context"
	"time"

	"github.com/metricmind/performancecore-backend/pkg/enums"
)

// Status is a side-effect-free read of one scheduler's state.
type Status struct {
	Name      string          `json:"name"`
	Running   bool            `json:"running"`
	Frequency enums.Frequency `json:"frequency,omitempty"`
	NextRun   *time.Time      `json:"next_run,omitempty"`
}

// Scheduler is the lifecycle every background loop exposes.
type Scheduler interface {
	Name() string
	Start(ctx context.Context) error
	Stop()
	Status() Status
}
