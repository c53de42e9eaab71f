package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/metricmind/performancecore-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// MetricSnapshot is a point-in-time roll-up of a campaign's metrics across
// every connected source. Counts are whole numbers; spend keeps two decimal
// places end to end.
type MetricSnapshot struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID       uuid.UUID          `gorm:"column:campaign_id;type:uuid;not null;index"`
	TotalImpressions int64              `gorm:"column:total_impressions;not null;default:0"`
	TotalEngagements int64              `gorm:"column:total_engagements;not null;default:0"`
	TotalClicks      int64              `gorm:"column:total_clicks;not null;default:0"`
	TotalConversions int64              `gorm:"column:total_conversions;not null;default:0"`
	TotalSpend       decimal.Decimal    `gorm:"column:total_spend;type:numeric(12,2);not null;default:0"`
	SnapshotType     enums.SnapshotType `gorm:"column:snapshot_type;type:snapshot_type;not null;default:'automatic'"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
}
