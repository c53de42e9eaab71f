package sources

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/metricmind/performancecore-backend/pkg/db/models"
	"github.com/metricmind/performancecore-backend/pkg/enums"
)

// LedgerSource totals recorded spend and revenue movements for a campaign.
type LedgerSource struct {
	db *gorm.DB
}

func NewLedgerSource(db *gorm.DB) *LedgerSource {
	return &LedgerSource{db: db}
}

func (s *LedgerSource) Name() string {
	return "ledger"
}

func (s *LedgerSource) FetchLatest(ctx context.Context, campaignID uuid.UUID) (Metrics, error) {
	var rows []models.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ledger entries: %w", err)
	}

	out := Metrics{}
	for _, row := range rows {
		amount, _ := row.Amount.Float64()
		switch row.EntryType {
		case enums.LedgerEntrySpend:
			out[enums.MetricSpend] += amount
		case enums.LedgerEntryRevenue:
			out[enums.MetricRevenue] += amount
		}
	}
	return out, nil
}
