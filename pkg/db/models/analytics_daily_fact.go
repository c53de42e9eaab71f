package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AnalyticsDailyFact is one day of analytics traffic for a campaign,
// refreshed from the analytics platform's daily export.
type AnalyticsDailyFact struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID  uuid.UUID       `gorm:"column:campaign_id;type:uuid;not null;index"`
	FactDate    time.Time       `gorm:"column:fact_date;not null"`
	Platform    string          `gorm:"column:platform;not null"`
	Impressions int64           `gorm:"column:impressions;not null;default:0"`
	Engagements int64           `gorm:"column:engagements;not null;default:0"`
	Clicks      int64           `gorm:"column:clicks;not null;default:0"`
	Conversions int64           `gorm:"column:conversions;not null;default:0"`
	Spend       decimal.Decimal `gorm:"column:spend;type:numeric(12,2);not null;default:0"`
	Revenue     decimal.Decimal `gorm:"column:revenue;type:numeric(12,2);not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
