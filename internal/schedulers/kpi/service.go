package kpi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

const schedulerName = "kpi"

const defaultAtRiskRatio = 0.7

// SnapshotReader supplies the latest snapshot per campaign.
type SnapshotReader interface {
	Latest(ctx context.Context, campaignID uuid.UUID) (*models.MetricSnapshot, error)
}

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Emitter queues a domain event inside the updating transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams configure the KPI scheduler.
type ServiceParams struct {
	Logger      *logger.Logger
	DB          *gorm.DB
	Tx          TxRunner
	Snapshots   SnapshotReader
	Emitter     Emitter
	Metrics     *metrics.SchedulerMetrics
	Interval    time.Duration
	AtRiskRatio float64
}

// Service recomputes each KPI's current value from the latest snapshot for
// its campaign and updates the on_track / at_risk / behind status.
type Service struct {
	logg        *logger.Logger
	db          *gorm.DB
	tx          TxRunner
	snapshots   SnapshotReader
	emitter     Emitter
	metrics     *metrics.SchedulerMetrics
	atRiskRatio float64
	loop        *schedulers.Loop
}

// NewService builds the KPI scheduler.
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
	if params.Snapshots == nil {
		return nil, errors.New("snapshot reader is required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ratio := params.AtRiskRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = defaultAtRiskRatio
	}

	s := &Service{
		logg:        params.Logger,
		db:          params.DB,
		tx:          params.Tx,
		snapshots:   params.Snapshots,
		emitter:     params.Emitter,
		metrics:     params.Metrics,
		atRiskRatio: ratio,
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

	var kpis []models.KPI
	if err := s.db.WithContext(ctx).Find(&kpis).Error; err != nil {
		s.logg.Error(logCtx, "kpi list fetch failed; aborting cycle", err)
		if s.metrics != nil {
			s.metrics.IncCycleFailure(schedulerName)
		}
		return
	}

	var failures error
	updated := 0
	for _, kpi := range kpis {
		if err := s.recompute(ctx, kpi); err != nil {
			failures = multierr.Append(failures, fmt.Errorf("kpi %s: %w", kpi.ID, err))
			continue
		}
		updated++
	}
	if failures != nil {
		s.logg.Error(logCtx, "some kpi updates failed", failures)
	}

	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveCycleDuration(schedulerName, duration)
		s.metrics.IncCycleSuccess(schedulerName)
	}
	fields := map[string]any{"kpis": len(kpis), "updated": updated, "duration_ms": duration.Milliseconds()}
	s.logg.Info(s.logg.WithFields(logCtx, fields), "kpi cycle complete")
}

func (s *Service) recompute(ctx context.Context, kpi models.KPI) error {
	snapshot, err := s.snapshots.Latest(ctx, kpi.CampaignID)
	if err != nil {
		return fmt.Errorf("latest snapshot: %w", err)
	}
	if snapshot == nil {
		// No snapshot yet; nothing to recompute from.
		return nil
	}

	current, ok := snapshotValue(snapshot, kpi.MetricKey)
	if !ok {
		// Metric keys snapshots do not carry keep their imported value.
		return nil
	}
	status := statusFor(current, kpi.TargetValue, s.atRiskRatio)
	previous := kpi.Status

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		err := tx.Model(&models.KPI{}).
			Where("id = ?", kpi.ID).
			Updates(map[string]any{
				"current_value": current,
				"status":        status,
			}).Error
		if err != nil {
			return err
		}
		if status == previous || s.emitter == nil {
			return nil
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventKPIStatusChanged,
			AggregateType: enums.AggregateKPI,
			AggregateID:   kpi.ID,
			Trigger:       &outbox.TriggerRef{Scheduler: schedulerName},
			Version:       1,
			Data: payloads.KPIStatusChangedEvent{
				KPIID:          kpi.ID,
				CampaignID:     kpi.CampaignID,
				MetricKey:      kpi.MetricKey,
				PreviousStatus: previous,
				Status:         status,
				CurrentValue:   current.StringFixed(2),
				TargetValue:    kpi.TargetValue.StringFixed(2),
			},
		})
	})
}

func snapshotValue(snapshot *models.MetricSnapshot, key enums.MetricKey) (decimal.Decimal, bool) {
	switch key {
	case enums.MetricImpressions:
		return decimal.NewFromInt(snapshot.TotalImpressions), true
	case enums.MetricEngagements:
		return decimal.NewFromInt(snapshot.TotalEngagements), true
	case enums.MetricClicks:
		return decimal.NewFromInt(snapshot.TotalClicks), true
	case enums.MetricConversions:
		return decimal.NewFromInt(snapshot.TotalConversions), true
	case enums.MetricSpend:
		return snapshot.TotalSpend, true
	default:
		return decimal.Decimal{}, false
	}
}

func statusFor(current, target decimal.Decimal, atRiskRatio float64) enums.KPIStatus {
	if !target.IsPositive() {
		return enums.KPIStatusBehind
	}
	ratio := current.Div(target)
	switch {
	case ratio.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return enums.KPIStatusOnTrack
	case ratio.GreaterThanOrEqual(decimal.NewFromFloat(atRiskRatio)):
		return enums.KPIStatusAtRisk
	default:
		return enums.KPIStatusBehind
	}
}
