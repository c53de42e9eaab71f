package snapshots

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/metricmind/performancecore-backend/pkg/db/models"
	"github.com/metricmind/performancecore-backend/pkg/enums"
	pkgerrors "github.com/metricmind/performancecore-backend/pkg/errors"
	"github.com/metricmind/performancecore-backend/pkg/outbox"
	"github.com/metricmind/performancecore-backend/pkg/outbox/payloads"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Emitter queues a domain event inside the storing transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CreateInput carries one snapshot write. TotalSpend is a fixed-point
// decimal string so storage never sees floating-point drift.
type CreateInput struct {
	CampaignID       uuid.UUID
	TotalImpressions int64
	TotalEngagements int64
	TotalClicks      int64
	TotalConversions int64
	TotalSpend       string
	SnapshotType     enums.SnapshotType
	Trigger          *outbox.TriggerRef
}

// Store persists metric snapshots and queues the matching outbox event in
// the same transaction.
type Store struct {
	db      TxRunner
	reader  *gorm.DB
	emitter Emitter
}

// NewStore builds a snapshot store. The emitter is optional; without one,
// writes simply skip event emission.
func NewStore(db TxRunner, reader *gorm.DB, emitter Emitter) (*Store, error) {
	if db == nil {
		return nil, errors.New("transaction runner is required")
	}
	if reader == nil {
		return nil, errors.New("database handle is required")
	}
	return &Store{db: db, reader: reader, emitter: emitter}, nil
}

// Create writes one snapshot row and queues a snapshot.created event.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.MetricSnapshot, error) {
	if input.CampaignID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign id is required")
	}
	if !input.SnapshotType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid snapshot type").
			WithDetails(map[string]any{"snapshot_type": string(input.SnapshotType)})
	}
	spend, err := decimal.NewFromString(input.TotalSpend)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "total spend is not a decimal string")
	}

	row := models.MetricSnapshot{
		ID:               uuid.New(),
		CampaignID:       input.CampaignID,
		TotalImpressions: input.TotalImpressions,
		TotalEngagements: input.TotalEngagements,
		TotalClicks:      input.TotalClicks,
		TotalConversions: input.TotalConversions,
		TotalSpend:       spend,
		SnapshotType:     input.SnapshotType,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if s.emitter == nil {
			return nil
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSnapshotCreated,
			AggregateType: enums.AggregateSnapshot,
			AggregateID:   row.ID,
			Trigger:       input.Trigger,
			Version:       1,
			Data:          snapshotEventData(row),
		})
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Latest returns the most recent snapshot for a campaign, or nil when the
// campaign has none.
func (s *Store) Latest(ctx context.Context, campaignID uuid.UUID) (*models.MetricSnapshot, error) {
	var row models.MetricSnapshot
	err := s.reader.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at DESC").
		Order("id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListByCampaign returns the newest snapshots first.
func (s *Store) ListByCampaign(ctx context.Context, campaignID uuid.UUID, limit int) ([]models.MetricSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.MetricSnapshot
	err := s.reader.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func snapshotEventData(row models.MetricSnapshot) payloads.SnapshotCreatedEvent {
	return payloads.SnapshotCreatedEvent{
		SnapshotID:       row.ID,
		CampaignID:       row.CampaignID,
		TotalImpressions: row.TotalImpressions,
		TotalEngagements: row.TotalEngagements,
		TotalClicks:      row.TotalClicks,
		TotalConversions: row.TotalConversions,
		TotalSpend:       row.TotalSpend.StringFixed(2),
		SnapshotType:     row.SnapshotType,
		CapturedAt:       time.Now().UTC(),
	}
}
