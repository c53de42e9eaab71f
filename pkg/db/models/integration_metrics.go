package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IntegrationMetrics is the latest metrics record pushed by a custom
// integration for a campaign. The payload is a loose key/value document;
// unknown keys are ignored downstream.
type IntegrationMetrics struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID    uuid.UUID       `gorm:"column:campaign_id;type:uuid;not null;index"`
	IntegrationID uuid.UUID       `gorm:"column:integration_id;type:uuid;not null"`
	Payload       json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	CapturedAt    time.Time       `gorm:"column:captured_at;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
