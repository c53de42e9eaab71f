package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/metricmind/performancecore-backend/internal/schedulers"
	"github.com/metricmind/performancecore-backend/pkg/db/models"
	"github.com/metricmind/performancecore-backend/pkg/enums"
	"github.com/metricmind/performancecore-backend/pkg/logger"
	"github.com/metricmind/performancecore-backend/pkg/metrics"
)

const schedulerName = "refresh"

const defaultStaleAfter = 48 * time.Hour

// Syncer pulls fresh data for one connected integration.
type Syncer interface {
	Sync(ctx context.Context, integration models.Integration) error
}

// noopSyncer is the default when no platform connector is wired in.
type noopSyncer struct{}

func (noopSyncer) Sync(context.Context, models.Integration) error { return nil }

// ServiceParams configure the integration refresh scheduler.
type ServiceParams struct {
	Logger     *logger.Logger
	DB         *gorm.DB
	Syncer     Syncer
	Metrics    *metrics.SchedulerMetrics
	Interval   time.Duration
	StaleAfter time.Duration
	Now        func() time.Time
}

// Service keeps integration sync state honest. Each cycle it attempts a sync
// for every non-disconnected integration; repeated failures past the stale
// window flip the row to error so the dashboard stops trusting its numbers.
type Service struct {
	logg       *logger.Logger
	db         *gorm.DB
	syncer     Syncer
	metrics    *metrics.SchedulerMetrics
	staleAfter time.Duration
	now        func() time.Time
	loop       *schedulers.Loop
}

// NewService builds the refresh scheduler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database handle is required")
	}
	syncer := params.Syncer
	if syncer == nil {
		syncer = noopSyncer{}
	}
	interval := params.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	s := &Service{
		logg:       params.Logger,
		db:         params.DB,
		syncer:     syncer,
		metrics:    params.Metrics,
		staleAfter: staleAfter,
		now:        now,
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

	var integrations []models.Integration
	err := s.db.WithContext(ctx).
		Where("status <> ?", enums.IntegrationStatusDisconnected).
		Order("created_at ASC").
		Find(&integrations).Error
	if err != nil {
		s.logg.Error(logCtx, "integration list fetch failed; aborting cycle", err)
		if s.metrics != nil {
			s.metrics.IncCycleFailure(schedulerName)
		}
		return
	}

	synced := 0
	for _, integration := range integrations {
		if s.refreshOne(ctx, integration) {
			synced++
		}
	}

	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveCycleDuration(schedulerName, duration)
		s.metrics.IncCycleSuccess(schedulerName)
	}
	fields := map[string]any{"integrations": len(integrations), "synced": synced, "duration_ms": duration.Milliseconds()}
	s.logg.Info(s.logg.WithFields(logCtx, fields), "refresh cycle complete")
}

func (s *Service) refreshOne(ctx context.Context, integration models.Integration) bool {
	logCtx := s.logg.WithSource(s.logg.WithScheduler(ctx, schedulerName), integration.Platform)
	now := s.now()

	if err := s.syncer.Sync(ctx, integration); err != nil {
		s.logg.Error(logCtx, "integration sync failed", err)
		if s.metrics != nil {
			s.metrics.IncSourceFailure(schedulerName, integration.Platform)
		}
		if s.isStale(integration, now) && integration.Status != enums.IntegrationStatusError {
			s.markStatus(logCtx, integration.ID, enums.IntegrationStatusError, nil)
		}
		return false
	}

	s.markStatus(logCtx, integration.ID, enums.IntegrationStatusConnected, &now)
	return true
}

func (s *Service) isStale(integration models.Integration, now time.Time) bool {
	if integration.LastSyncAt == nil {
		return true
	}
	return now.Sub(*integration.LastSyncAt) > s.staleAfter
}

func (s *Service) markStatus(logCtx context.Context, id uuid.UUID, status enums.IntegrationStatus, syncedAt *time.Time) {
	updates := map[string]any{"status": status}
	if syncedAt != nil {
		updates["last_sync_at"] = *syncedAt
	}
	err := s.db.Model(&models.Integration{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		s.logg.Error(logCtx, "integration status update failed", err)
	}
}
