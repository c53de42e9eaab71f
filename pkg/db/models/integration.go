package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/metricmind/performancecore-backend/pkg/enums"
)

// Integration is a connected advertising or analytics platform. It replaces
// the dashboard's old process-global connection map with owned, queryable
// state: the refresh scheduler advances LastSyncAt and flips Status when a
// connection goes stale.
type Integration struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Platform   string                  `gorm:"column:platform;not null"`
	Status     enums.IntegrationStatus `gorm:"column:status;type:integration_status;not null;default:'disconnected'"`
	AccountID  *string                 `gorm:"column:account_id"`
	LastSyncAt *time.Time              `gorm:"column:last_sync_at"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
