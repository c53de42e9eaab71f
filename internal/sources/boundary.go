package sources

import (
	"context"

	"github.com/google/uuid"

	"github.com/metricmind/performancecore-backend/pkg/logger"
	"github.com/metricmind/performancecore-backend/pkg/metrics"
)

// Boundary wraps a source so a collaborator failure degrades to an empty
// result instead of propagating. Partial data is preferred over a failed
// cycle; the failure is logged and counted.
type Boundary struct {
	source    Source
	logg      *logger.Logger
	metrics   *metrics.SchedulerMetrics
	scheduler string
}

// Guard wraps the source in a failure boundary.
func Guard(source Source, logg *logger.Logger, m *metrics.SchedulerMetrics, scheduler string) *Boundary {
	return &Boundary{source: source, logg: logg, metrics: m, scheduler: scheduler}
}

// Name reports the wrapped source's name.
func (b *Boundary) Name() string {
	return b.source.Name()
}

// FetchLatest never returns an error. A failed fetch yields an empty map.
func (b *Boundary) FetchLatest(ctx context.Context, campaignID uuid.UUID) (Metrics, error) {
	result, err := b.source.FetchLatest(ctx, campaignID)
	if err != nil {
		if b.logg != nil {
			logCtx := b.logg.WithCampaignID(ctx, campaignID.String())
			logCtx = b.logg.WithSource(logCtx, b.source.Name())
			b.logg.Error(logCtx, "source fetch failed; continuing without its data", err)
		}
		if b.metrics != nil {
			b.metrics.IncSourceFailure(b.scheduler, b.source.Name())
		}
		return Metrics{}, nil
	}
	if result == nil {
		result = Metrics{}
	}
	return result, nil
}
