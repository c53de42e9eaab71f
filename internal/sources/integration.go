package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/metricmind/performancecore-backend/pkg/db/models"
)

// IntegrationSource reads the single latest metrics record pushed by a
// custom integration for a campaign.
type IntegrationSource struct {
	db *gorm.DB
}

func NewIntegrationSource(db *gorm.DB) *IntegrationSource {
	return &IntegrationSource{db: db}
}

func (s *IntegrationSource) Name() string {
	return "custom_integration"
}

func (s *IntegrationSource) FetchLatest(ctx context.Context, campaignID uuid.UUID) (Metrics, error) {
	var record models.IntegrationMetrics
	err := s.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("captured_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Metrics{}, nil
		}
		return nil, fmt.Errorf("latest integration metrics: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(record.Payload, &raw); err != nil {
		return nil, fmt.Errorf("decode integration payload: %w", err)
	}
	return parseRaw(raw), nil
}
