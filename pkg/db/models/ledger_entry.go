package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/metricmind/performancecore-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// LedgerEntry records a single spend or revenue movement against a campaign.
type LedgerEntry struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID uuid.UUID             `gorm:"column:campaign_id;type:uuid;not null;index"`
	EntryType  enums.LedgerEntryType `gorm:"column:entry_type;type:ledger_entry_type;not null"`
	Amount     decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	OccurredAt time.Time             `gorm:"column:occurred_at;not null"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
}
