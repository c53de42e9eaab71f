package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/metricmind/performancecore-backend/pkg/enums"
)

// Campaign is a tracked marketing initiative. The scheduler subsystem only
// reads campaigns; creation and mutation belong to the dashboard API.
type Campaign struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string               `gorm:"column:name;not null"`
	Type      string               `gorm:"column:type;not null"`
	Platform  string               `gorm:"column:platform;not null"`
	Status    enums.CampaignStatus `gorm:"column:status;type:campaign_status;not null;default:'active'"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
