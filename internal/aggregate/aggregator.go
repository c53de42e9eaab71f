package aggregate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/metricmind/performancecore-backend/internal/sources"
	"github.com/metricmind/performancecore-backend/pkg/enums"
	"github.com/metricmind/performancecore-backend/pkg/logger"
	"github.com/metricmind/performancecore-backend/pkg/numeric"
)

const defaultSourceTimeout = 15 * time.Second

// Totals is a campaign's metrics summed across every source, normalized for
// snapshot storage. Counts are whole units; spend keeps two decimal places.
type Totals struct {
	Impressions int64
	Engagements int64
	Clicks      int64
	Conversions int64
	Spend       decimal.Decimal
}

// HasActivity reports whether the totals pass the persistence gate: at least
// one of impressions, clicks, or spend strictly positive.
func (t Totals) HasActivity() bool {
	return t.Impressions > 0 || t.Clicks > 0 || t.Spend.IsPositive()
}

// Aggregator merges per-source metrics into campaign totals. It has no error
// path: sources arrive wrapped in failure boundaries, and every value is
// re-coerced before summing in case a source's own collaborator was
// malformed.
type Aggregator struct {
	sources       []sources.Source
	logg          *logger.Logger
	sourceTimeout time.Duration
}

// NewAggregator builds an aggregator over the given sources. A non-positive
// timeout falls back to the default per-source bound.
func NewAggregator(srcs []sources.Source, logg *logger.Logger, sourceTimeout time.Duration) *Aggregator {
	if sourceTimeout <= 0 {
		sourceTimeout = defaultSourceTimeout
	}
	return &Aggregator{sources: srcs, logg: logg, sourceTimeout: sourceTimeout}
}

// Aggregate fans out to every source concurrently, sums the results
// additively, and normalizes counts and spend. Sources run under a bounded
// timeout so a hung collaborator cannot stall the cycle.
func (a *Aggregator) Aggregate(ctx context.Context, campaignID uuid.UUID) Totals {
	results := make([]sources.Metrics, len(a.sources))

	var wg sync.WaitGroup
	for i, source := range a.sources {
		wg.Add(1)
		go func(idx int, src sources.Source) {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, a.sourceTimeout)
			defer cancel()
			metricsMap, err := src.FetchLatest(fetchCtx, campaignID)
			if err != nil {
				// Boundary-wrapped sources never error; a raw source that
				// does is treated the same way.
				if a.logg != nil {
					logCtx := a.logg.WithCampaignID(ctx, campaignID.String())
					logCtx = a.logg.WithSource(logCtx, src.Name())
					a.logg.Error(logCtx, "source fetch failed; continuing without its data", err)
				}
				metricsMap = sources.Metrics{}
			}
			results[idx] = metricsMap
		}(i, source)
	}
	wg.Wait()

	sums := map[enums.MetricKey]float64{}
	for _, metricsMap := range results {
		for key, value := range metricsMap {
			sums[key] += numeric.Safe(value)
		}
	}

	return Totals{
		Impressions: numeric.RoundCount(sums[enums.MetricImpressions]),
		Engagements: numeric.RoundCount(sums[enums.MetricEngagements]),
		Clicks:      numeric.RoundCount(sums[enums.MetricClicks]),
		Conversions: numeric.RoundCount(sums[enums.MetricConversions]),
		Spend:       numeric.Spend(sums[enums.MetricSpend]),
	}
}
