package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/metricmind/performancecore-backend/pkg/enums"
)

// ScheduledReport is a recurring report dispatch. NextRunAt drives the report
// scheduler; rows with a past-due NextRunAt are picked up on the next cycle.
type ScheduledReport struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string          `gorm:"column:name;not null"`
	Frequency  enums.Frequency `gorm:"column:frequency;type:frequency;not null;default:'daily'"`
	Recipients pq.StringArray  `gorm:"column:recipients;type:text[]"`
	Active     bool            `gorm:"column:active;not null;default:true"`
	NextRunAt  time.Time       `gorm:"column:next_run_at;not null;index"`
	LastRunAt  *time.Time      `gorm:"column:last_run_at"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
