package enums

import "strings"

// MetricKey is the closed set of metric names the aggregation pipeline
// understands. Source rows carry free-form lower-cased keys; anything outside
// this set is ignored at the aggregator boundary.
type MetricKey string

const (
	MetricImpressions MetricKey = "impressions"
	MetricEngagements MetricKey = "engagements"
	MetricClicks      MetricKey = "clicks"
	MetricConversions MetricKey = "conversions"
	MetricSpend       MetricKey = "spend"
	MetricRevenue     MetricKey = "revenue"
	MetricLeads       MetricKey = "leads"
	MetricVideoViews  MetricKey = "video_views"
)

var validMetricKeys = []MetricKey{
	MetricImpressions,
	MetricEngagements,
	MetricClicks,
	MetricConversions,
	MetricSpend,
	MetricRevenue,
	MetricLeads,
	MetricVideoViews,
}

// String implements fmt.Stringer.
func (m MetricKey) String() string {
	return string(m)
}

// IsValid reports whether the key belongs to the canonical set.
func (m MetricKey) IsValid() bool {
	for _, candidate := range validMetricKeys {
		if candidate == m {
			return true
		}
	}
	return false
}

// NormalizeMetricKey lower-cases raw source keys and maps them onto the
// canonical set. The second return is false for unknown keys.
func NormalizeMetricKey(raw string) (MetricKey, bool) {
	key := MetricKey(strings.ToLower(strings.TrimSpace(raw)))
	if key.IsValid() {
		return key, true
	}
	return "", false
}
