package models

import (
	"time"

	"github.com/google/uuid"
)

// ImportSession records one bulk import of ads-platform metrics for a
// campaign. The ads-import source always reads the session with the newest
// ImportedAt.
type ImportSession struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID uuid.UUID `gorm:"column:campaign_id;type:uuid;not null;index"`
	Platform   string    `gorm:"column:platform;not null"`
	ImportedAt time.Time `gorm:"column:imported_at;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
