package sources

import (
	"context"

	"github.com/google/uuid"

	"github.com/metricmind/performancecore-backend/pkg/enums"
	"github.com/metricmind/performancecore-backend/pkg/numeric"
)

// Metrics is one source's latest view of a campaign, keyed by canonical
// metric key. An empty map means the source has no data for the campaign.
type Metrics map[enums.MetricKey]float64

// Source fetches the latest metrics a platform holds for a campaign.
// Absence of data is an empty map, not an error.
type Source interface {
	Name() string
	FetchLatest(ctx context.Context, campaignID uuid.UUID) (Metrics, error)
}

// parseRaw folds a loosely typed metric map into canonical keys. Keys outside
// the known taxonomy are dropped; values go through total coercion, and rows
// sharing a key after normalization are summed.
func parseRaw(raw map[string]any) Metrics {
	out := Metrics{}
	for key, value := range raw {
		canonical, ok := enums.NormalizeMetricKey(key)
		if !ok {
			continue
		}
		out[canonical] += numeric.Safe(value)
	}
	return out
}
