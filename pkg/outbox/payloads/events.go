package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/metricmind/performancecore-backend/pkg/enums"
)

// SnapshotCreatedEvent is emitted after a metric snapshot row is persisted.
type SnapshotCreatedEvent struct {
	SnapshotID       uuid.UUID          `json:"snapshot_id"`
	CampaignID       uuid.UUID          `json:"campaign_id"`
	TotalImpressions int64              `json:"total_impressions"`
	TotalEngagements int64              `json:"total_engagements"`
	TotalClicks      int64              `json:"total_clicks"`
	TotalConversions int64              `json:"total_conversions"`
	TotalSpend       string             `json:"total_spend"`
	SnapshotType     enums.SnapshotType `json:"snapshot_type"`
	CapturedAt       time.Time          `json:"captured_at"`
}

// ReportDispatchedEvent signals a scheduled report run completed.
type ReportDispatchedEvent struct {
	ReportID     uuid.UUID `json:"report_id"`
	Name         string    `json:"name"`
	Recipients   []string  `json:"recipients"`
	DispatchedAt time.Time `json:"dispatched_at"`
}

// KPIStatusChangedEvent is emitted when a KPI crosses a status boundary.
type KPIStatusChangedEvent struct {
	KPIID          uuid.UUID       `json:"kpi_id"`
	CampaignID     uuid.UUID       `json:"campaign_id"`
	MetricKey      enums.MetricKey `json:"metric_key"`
	PreviousStatus enums.KPIStatus `json:"previous_status"`
	Status         enums.KPIStatus `json:"status"`
	CurrentValue   string          `json:"current_value"`
	TargetValue    string          `json:"target_value"`
}
