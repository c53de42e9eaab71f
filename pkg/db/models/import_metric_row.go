package models

import (
	"time"

	"github.com/google/uuid"
)

// ImportMetricRow is a single metric fact inside an import session. Values
// arrive as strings from the upstream export and are only coerced at the
// aggregation boundary. A session may carry multiple rows for the same key
// (per-ad granularity) that roll up to campaign level.
type ImportMetricRow struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID   uuid.UUID `gorm:"column:session_id;type:uuid;not null;index"`
	MetricKey   string    `gorm:"column:metric_key;not null"`
	MetricValue string    `gorm:"column:metric_value;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
