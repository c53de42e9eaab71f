package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/metricmind/performancecore-backend/pkg/db/models"
	"github.com/metricmind/performancecore-backend/pkg/enums"
)

// AnalyticsSource reads the most recent day of analytics traffic for a
// campaign. When the export writes one row per platform for the same day,
// the rows are summed.
type AnalyticsSource struct {
	db *gorm.DB
}

func NewAnalyticsSource(db *gorm.DB) *AnalyticsSource {
	return &AnalyticsSource{db: db}
}

func (s *AnalyticsSource) Name() string {
	return "analytics_facts"
}

func (s *AnalyticsSource) FetchLatest(ctx context.Context, campaignID uuid.UUID) (Metrics, error) {
	var latest models.AnalyticsDailyFact
	err := s.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("fact_date DESC").
		First(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Metrics{}, nil
		}
		return nil, fmt.Errorf("latest analytics fact: %w", err)
	}

	var rows []models.AnalyticsDailyFact
	err = s.db.WithContext(ctx).
		Where("campaign_id = ? AND fact_date = ?", campaignID, latest.FactDate).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("analytics facts for day: %w", err)
	}

	out := Metrics{}
	for _, row := range rows {
		out[enums.MetricImpressions] += float64(row.Impressions)
		out[enums.MetricEngagements] += float64(row.Engagements)
		out[enums.MetricClicks] += float64(row.Clicks)
		out[enums.MetricConversions] += float64(row.Conversions)
		spend, _ := row.Spend.Float64()
		out[enums.MetricSpend] += spend
		revenue, _ := row.Revenue.Float64()
		out[enums.MetricRevenue] += revenue
	}
	return out, nil
}
