package snapshot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/metricmind/performancecore-backend/internal/aggregate"
	"github.com/metricmind/performancecore-backend/internal/schedulers"
	"github.com/metricmind/performancecore-backend/internal/snapshots"
	"github.com/metricmind/performancecore-backend/pkg/db/models"
	"github.com/metricmind/performancecore-backend/pkg/enums"
	pkgerrors "github.com/metricmind/performancecore-backend/pkg/errors"
	"github.com/metricmind/performancecore-backend/pkg/logger"
	"github.com/metricmind/performancecore-backend/pkg/metrics"
	"github.com/metricmind/performancecore-backend/pkg/outbox"
)

const schedulerName = "snapshot"

// CampaignLister supplies the campaigns to aggregate each cycle.
type CampaignLister interface {
	List(ctx context.Context) ([]models.Campaign, error)
}

// MetricsAggregator computes campaign totals across all sources.
type MetricsAggregator interface {
	Aggregate(ctx context.Context, campaignID uuid.UUID) aggregate.Totals
}

// SnapshotWriter persists one snapshot.
type SnapshotWriter interface {
	Create(ctx context.Context, input snapshots.CreateInput) (*models.MetricSnapshot, error)
}

// ServiceParams configure the snapshot scheduler.
type ServiceParams struct {
	Logger     *logger.Logger
	Campaigns  CampaignLister
	Aggregator MetricsAggregator
	Store      SnapshotWriter
	Lock       schedulers.Lock
	Metrics    *metrics.SchedulerMetrics
	Frequency  enums.Frequency
}

// Service writes periodic metric snapshots for every campaign. Cycles run
// once immediately on Start and then on a fixed cadence; one campaign's
// failure never aborts the rest of the batch.
type Service struct {
	logg       *logger.Logger
	campaigns  CampaignLister
	aggregator MetricsAggregator
	store      SnapshotWriter
	lock       schedulers.Lock
	metrics    *metrics.SchedulerMetrics

	mu   sync.Mutex
	freq enums.Frequency
	loop *schedulers.Loop
}

// NewService builds the snapshot scheduler. An unset frequency defaults to
// daily.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Campaigns == nil {
		return nil, errors.New("campaign lister is required")
	}
	if params.Aggregator == nil {
		return nil, errors.New("aggregator is required")
	}
	if params.Store == nil {
		return nil, errors.New("snapshot store is required")
	}
	freq := params.Frequency
	if freq == "" {
		freq = enums.FrequencyDaily
	}
	if !freq.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid snapshot frequency").
			WithDetails(map[string]any{"frequency": string(freq)})
	}

	s := &Service{
		logg:       params.Logger,
		campaigns:  params.Campaigns,
		aggregator: params.Aggregator,
		store:      params.Store,
		lock:       params.Lock,
		metrics:    params.Metrics,
		freq:       freq,
	}
	s.loop = schedulers.NewLoop(schedulerName, freq.Interval(), params.Logger, s.runCycle)
	return s, nil
}

// Name identifies the scheduler.
func (s *Service) Name() string {
	return schedulerName
}

// Start begins the scheduling loop. A second Start while running is a
// logged no-op.
func (s *Service) Start(ctx context.Context) error {
	s.loop.Start(ctx)
	return nil
}

// Stop cancels future cycles without interrupting one in flight.
func (s *Service) Stop() {
	s.loop.Stop()
}

// SetFrequency switches the cadence. A running scheduler restarts with the
// new interval, firing an immediate extra cycle.
func (s *Service) SetFrequency(freq enums.Frequency) error {
	if !freq.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid snapshot frequency").
			WithDetails(map[string]any{"frequency": string(freq)})
	}
	s.mu.Lock()
	s.freq = freq
	s.mu.Unlock()
	s.loop.SetInterval(freq.Interval())
	return nil
}

// Status reports the scheduler's current state.
func (s *Service) Status() schedulers.Status {
	s.mu.Lock()
	freq := s.freq
	s.mu.Unlock()
	return schedulers.Status{
		Name:      schedulerName,
		Running:   s.loop.Running(),
		Frequency: freq,
		NextRun:   s.loop.NextRun(),
	}
}

// SnapshotCampaign aggregates one campaign and writes a snapshot when the
// persistence gate passes. The manual API trigger and the scheduled cycle
// share this path. The bool result reports whether a snapshot was written.
func (s *Service) SnapshotCampaign(ctx context.Context, campaignID uuid.UUID, snapshotType enums.SnapshotType, trigger *outbox.TriggerRef) (*models.MetricSnapshot, bool, error) {
	totals := s.aggregator.Aggregate(ctx, campaignID)
	if !totals.HasActivity() {
		logCtx := s.logg.WithCampaignID(ctx, campaignID.String())
		s.logg.Debug(logCtx, "no reporting activity; snapshot skipped")
		if s.metrics != nil {
			s.metrics.IncCampaignsSkipped(schedulerName)
		}
		return nil, false, nil
	}

	created, err := s.store.Create(ctx, snapshots.CreateInput{
		CampaignID:       campaignID,
		TotalImpressions: totals.Impressions,
		TotalEngagements: totals.Engagements,
		TotalClicks:      totals.Clicks,
		TotalConversions: totals.Conversions,
		TotalSpend:       totals.Spend.StringFixed(2),
		SnapshotType:     snapshotType,
		Trigger:          trigger,
	})
	if err != nil {
		return nil, false, err
	}
	if s.metrics != nil {
		s.metrics.IncSnapshotsWritten(schedulerName)
	}
	return created, true, nil
}

func (s *Service) runCycle(ctx context.Context) {
	start := time.Now()
	logCtx := s.logg.WithScheduler(ctx, schedulerName)

	if s.lock != nil {
		locked, err := s.lock.Acquire(ctx)
		if err != nil {
			s.logg.Error(logCtx, "scheduler lock acquire failed", err)
			s.recordFailure()
			return
		}
		if !locked {
			s.logg.Info(logCtx, "another worker holds the snapshot lock; skipping this cycle")
			return
		}
		defer func() {
			if relErr := s.lock.Release(ctx); relErr != nil {
				s.logg.Error(logCtx, "scheduler lock release failed", relErr)
			}
		}()
	}

	campaigns, err := s.campaigns.List(ctx)
	if err != nil {
		// A repository outage is transient; the scheduler stays armed for
		// the next tick.
		s.logg.Error(logCtx, "campaign list fetch failed; aborting cycle", err)
		s.recordFailure()
		return
	}

	written := 0
	for _, campaign := range campaigns {
		campaignCtx := s.logg.WithCampaignID(logCtx, campaign.ID.String())
		_, ok, err := s.SnapshotCampaign(ctx, campaign.ID, enums.SnapshotTypeAutomatic, &outbox.TriggerRef{Scheduler: schedulerName})
		if err != nil {
			s.logg.Error(campaignCtx, "snapshot write failed; continuing with remaining campaigns", err)
			if s.metrics != nil {
				s.metrics.IncWriteFailure(schedulerName)
			}
			continue
		}
		if ok {
			written++
		}
	}

	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveCycleDuration(schedulerName, duration)
		s.metrics.IncCycleSuccess(schedulerName)
	}
	fields := map[string]any{
		"campaigns":   len(campaigns),
		"written":     written,
		"duration_ms": duration.Milliseconds(),
	}
	s.logg.Info(s.logg.WithFields(logCtx, fields), "snapshot cycle complete")
}

func (s *Service) recordFailure() {
	if s.metrics != nil {
		s.metrics.IncCycleFailure(schedulerName)
	}
}
