package campaigns

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/metricmind/performancecore-backend/pkg/db/models"
	pkgerrors "github.com/metricmind/performancecore-backend/pkg/errors"
)

// Repository exposes campaign persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a campaign repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns every campaign ordered by creation time.
func (r *Repository) List(ctx context.Context) ([]models.Campaign, error) {
	var rows []models.Campaign
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByStatus returns campaigns currently in the given status.
func (r *Repository) ListByStatus(ctx context.Context, status string) ([]models.Campaign, error) {
	var rows []models.Campaign
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID fetches a single campaign.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var row models.Campaign
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found").WithDetails(map[string]any{"campaign_id": id.String()})
		}
		return nil, err
	}
	return &row, nil
}
