package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/metricmind/performancecore-backend/api/responses"
	"github.com/metricmind/performancecore-backend/pkg/db/models"
	"github.com/metricmind/performancecore-backend/pkg/enums"
	pkgerrors "github.com/metricmind/performancecore-backend/pkg/errors"
	"github.com/metricmind/performancecore-backend/pkg/logger"
	"github.com/metricmind/performancecore-backend/pkg/outbox"
)

// CampaignFinder checks the campaign exists before a snapshot is attempted.
type CampaignFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
}

// SnapshotTrigger runs one on-demand snapshot through the same aggregation
// path the scheduler uses.
type SnapshotTrigger interface {
	SnapshotCampaign(ctx context.Context, campaignID uuid.UUID, snapshotType enums.SnapshotType, trigger *outbox.TriggerRef) (*models.MetricSnapshot, bool, error)
}

type snapshotResponse struct {
	Written  bool             `json:"written"`
	Snapshot *snapshotPayload `json:"snapshot,omitempty"`
}

type snapshotPayload struct {
	ID               uuid.UUID          `json:"id"`
	CampaignID       uuid.UUID          `json:"campaign_id"`
	TotalImpressions int64              `json:"total_impressions"`
	TotalEngagements int64              `json:"total_engagements"`
	TotalClicks      int64              `json:"total_clicks"`
	TotalConversions int64              `json:"total_conversions"`
	TotalSpend       string             `json:"total_spend"`
	SnapshotType     enums.SnapshotType `json:"snapshot_type"`
	CreatedAt        time.Time          `json:"created_at"`
}

func TriggerCampaignSnapshot(campaigns CampaignFinder, trigger SnapshotTrigger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		campaignID, err := uuid.Parse(chi.URLParam(r, "campaignId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid campaign id"))
			return
		}

		if _, err := campaigns.FindByID(ctx, campaignID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ref := &outbox.TriggerRef{RequestID: w.Header().Get("X-Request-Id")}
		snapshot, written, err := trigger.SnapshotCampaign(ctx, campaignID, enums.SnapshotTypeManual, ref)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := snapshotResponse{Written: written}
		if written {
			resp.Snapshot = &snapshotPayload{
				ID:               snapshot.ID,
				CampaignID:       snapshot.CampaignID,
				TotalImpressions: snapshot.TotalImpressions,
				TotalEngagements: snapshot.TotalEngagements,
				TotalClicks:      snapshot.TotalClicks,
				TotalConversions: snapshot.TotalConversions,
				TotalSpend:       snapshot.TotalSpend.StringFixed(2),
				SnapshotType:     snapshot.SnapshotType,
				CreatedAt:        snapshot.CreatedAt,
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, resp)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
