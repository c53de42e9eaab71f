package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/metricmind/performancecore-backend/internal/schedulers"
	"github.com/metricmind/performancecore-backend/pkg/db/models"
	"github.com/metricmind/performancecore-backend/pkg/enums"
	"github.com/metricmind/performancecore-backend/pkg/logger"
	"github.com/metricmind/performancecore-backend/pkg/metrics"
	"github.com/metricmind/performancecore-backend/pkg/outbox"
	"github.com/metricmind/performancecore-backend/pkg/outbox/payloads"
)

const schedulerName = "reports"

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Emitter queues a domain event inside the dispatching transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams configure the report scheduler.
type ServiceParams struct {
	Logger   *logger.Logger
	DB       *gorm.DB
	Tx       TxRunner
	Emitter  Emitter
	Metrics  *metrics.SchedulerMetrics
	Interval time.Duration
	Now      func() time.Time
}

// Service dispatches scheduled reports whose NextRunAt is due. Dispatch is a
// transactional row update plus a report.dispatched outbox event; actual
// delivery happens downstream off the event stream.
type Service struct {
	logg    *logger.Logger
	db      *gorm.DB
	tx      TxRunner
	emitter Emitter
	metrics *metrics.SchedulerMetrics
	now     func() time.Time
	loop    *schedulers.Loop
}

// NewService builds the report scheduler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database handle is required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	s := &Service{
		logg:    params.Logger,
		db:      params.DB,
		tx:      params.Tx,
		emitter: params.Emitter,
		metrics: params.Metrics,
		now:     now,
	}
	s.loop = schedulers.NewLoop(schedulerName, interval, params.Logger, s.runCycle)
	return s, nil
}

func (s *Service) Name() string {
	return schedulerName
}

func (s *Service) Start(ctx context.Context) error {
	s.loop.Start(ctx)
	return nil
}

func (s *Service) Stop() {
	s.loop.Stop()
}

func (s *Service) Status() schedulers.Status {
	return schedulers.Status{
		Name:    schedulerName,
		Running: s.loop.Running(),
		NextRun: s.loop.NextRun(),
	}
}

func (s *Service) runCycle(ctx context.Context) {
	start := time.Now()
	logCtx := s.logg.WithScheduler(ctx, schedulerName)

	var due []models.ScheduledReport
	err := s.db.WithContext(ctx).
		Where("active = ? AND next_run_at <= ?", true, s.now()).
		Order("next_run_at ASC").
		Find(&due).Error
	if err != nil {
		s.logg.Error(logCtx, "due report fetch failed; aborting cycle", err)
		if s.metrics != nil {
			s.metrics.IncCycleFailure(schedulerName)
		}
		return
	}

	var failures error
	dispatched := 0
	for _, report := range due {
		if err := s.dispatch(ctx, report); err != nil {
			failures = multierr.Append(failures, fmt.Errorf("report %s: %w", report.ID, err))
			continue
		}
		dispatched++
	}
	if failures != nil {
		s.logg.Error(logCtx, "some report dispatches failed", failures)
	}

	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveCycleDuration(schedulerName, duration)
		s.metrics.IncCycleSuccess(schedulerName)
	}
	fields := map[string]any{"due": len(due), "dispatched": dispatched, "duration_ms": duration.Milliseconds()}
	s.logg.Info(s.logg.WithFields(logCtx, fields), "report cycle complete")
}

func (s *Service) dispatch(ctx context.Context, report models.ScheduledReport) error {
	now := s.now()
	next := nextRunAfter(report.NextRunAt, report.Frequency, now)

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		err := tx.Model(&models.ScheduledReport{}).
			Where("id = ?", report.ID).
			Updates(map[string]any{
				"last_run_at": now,
				"next_run_at": next,
			}).Error
		if err != nil {
			return err
		}
		if s.emitter == nil {
			return nil
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReportDispatched,
			AggregateType: enums.AggregateReport,
			AggregateID:   report.ID,
			Trigger:       &outbox.TriggerRef{Scheduler: schedulerName},
			Version:       1,
			Data: payloads.ReportDispatchedEvent{
				ReportID:     report.ID,
				Name:         report.Name,
				Recipients:   report.Recipients,
				DispatchedAt: now,
			},
		})
	})
}

// nextRunAfter advances from the stored slot so the schedule keeps its phase,
// skipping slots already in the past after downtime.
func nextRunAfter(prev time.Time, freq enums.Frequency, now time.Time) time.Time {
	step := freq.Interval()
	if step <= 0 {
		step = 24 * time.Hour
	}
	next := prev.Add(step)
	for !next.After(now) {
		next = next.Add(step)
	}
	return next
}
