package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/metricmind/performancecore-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// KPI tracks a campaign target for one metric. CurrentValue is refreshed by
// the KPI scheduler from the latest snapshot, and Status is derived from the
// current-to-target ratio.
type KPI struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID   uuid.UUID       `gorm:"column:campaign_id;type:uuid;not null;index"`
	Name         string          `gorm:"column:name;not null"`
	MetricKey    enums.MetricKey `gorm:"column:metric_key;type:metric_key;not null"`
	TargetValue  decimal.Decimal `gorm:"column:target_value;type:numeric(12,2);not null"`
	CurrentValue decimal.Decimal `gorm:"column:current_value;type:numeric(12,2);not null;default:0"`
	Status       enums.KPIStatus `gorm:"column:status;type:kpi_status;not null;default:'behind'"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
