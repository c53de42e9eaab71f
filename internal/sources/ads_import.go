package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/metricmind/performancecore-backend/pkg/db/models"
	"github.com/metricmind/performancecore-backend/pkg/enums"
	"github.com/metricmind/performancecore-backend/pkg/numeric"
)

// AdsImportSource reads the most recent ads-platform import session for a
// campaign and rolls its rows up to campaign level. A session can hold
// multiple rows per metric (per-ad granularity); rows sharing a key are
// summed.
type AdsImportSource struct {
	db *gorm.DB
}

func NewAdsImportSource(db *gorm.DB) *AdsImportSource {
	return &AdsImportSource{db: db}
}

func (s *AdsImportSource) Name() string {
	return "ads_import"
}

func (s *AdsImportSource) FetchLatest(ctx context.Context, campaignID uuid.UUID) (Metrics, error) {
	var session models.ImportSession
	err := s.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("imported_at DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Metrics{}, nil
		}
		return nil, fmt.Errorf("latest import session: %w", err)
	}

	var rows []models.ImportMetricRow
	if err := s.db.WithContext(ctx).Where("session_id = ?", session.ID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("session metric rows: %w", err)
	}

	out := Metrics{}
	for _, row := range rows {
		key, ok := enums.NormalizeMetricKey(row.MetricKey)
		if !ok {
			continue
		}
		out[key] += numeric.Safe(row.MetricValue)
	}
	return out, nil
}
