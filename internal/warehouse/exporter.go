package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/metricmind/performancecore-backend/pkg/enums"
	"github.com/metricmind/performancecore-backend/pkg/logger"
	"github.com/metricmind/performancecore-backend/pkg/outbox"
	"github.com/metricmind/performancecore-backend/pkg/outbox/payloads"
)

const consumerName = "warehouse"

const (
	insertAttempts = 3
	insertBackoff  = 200 * time.Millisecond
)

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Exporter writes snapshot facts to BigQuery while honoring Redis idempotency.
type Exporter struct {
	client  tableInserter
	table   string
	manager idempotencyChecker
	logg    *logger.Logger
}

// NewExporter builds a snapshot fact exporter.
func NewExporter(client tableInserter, table string, manager idempotencyChecker, logg *logger.Logger) (*Exporter, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("bigquery table name required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Exporter{
		client:  client,
		table:   strings.TrimSpace(table),
		manager: manager,
		logg:    logg,
	}, nil
}

// Process ingests a snapshot.created envelope into the warehouse. Other event
// types are acknowledged without a write.
func (e *Exporter) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := e.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if eventType != enums.EventSnapshotCreated {
		e.logg.Info(logCtx, "event not handled by warehouse exporter")
		return nil
	}

	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	already, err := e.manager.CheckAndMarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		e.logg.Info(logCtx, "event already processed")
		return nil
	}

	row, err := buildFactRow(envelope)
	if err != nil {
		e.logg.Error(logCtx, "failed to build snapshot fact row", err)
		_ = e.manager.Delete(ctx, consumerName, eventID)
		return err
	}

	if err := e.insertWithRetry(ctx, row); err != nil {
		e.logg.Error(logCtx, "failed to insert snapshot fact row", err)
		_ = e.manager.Delete(ctx, consumerName, eventID)
		return err
	}

	e.logg.Info(logCtx, "snapshot fact exported")
	return nil
}

func (e *Exporter) insertWithRetry(ctx context.Context, row *snapshotFactRow) error {
	backoff := insertBackoff
	var lastErr error
	for attempt := 1; attempt <= insertAttempts; attempt++ {
		lastErr = e.client.InsertRows(ctx, e.table, []any{row})
		if lastErr == nil {
			return nil
		}
		if attempt == insertAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("insert after %d attempts: %w", insertAttempts, lastErr)
}

type snapshotFactRow struct {
	EventID          string    `bigquery:"event_id"`
	SnapshotID       string    `bigquery:"snapshot_id"`
	CampaignID       string    `bigquery:"campaign_id"`
	TotalImpressions int64     `bigquery:"total_impressions"`
	TotalEngagements int64     `bigquery:"total_engagements"`
	TotalClicks      int64     `bigquery:"total_clicks"`
	TotalConversions int64     `bigquery:"total_conversions"`
	TotalSpend       string    `bigquery:"total_spend"`
	SnapshotType     string    `bigquery:"snapshot_type"`
	OccurredAt       time.Time `bigquery:"occurred_at"`
}

func buildFactRow(envelope outbox.PayloadEnvelope) (*snapshotFactRow, error) {
	if len(envelope.Data) == 0 {
		return nil, fmt.Errorf("payload missing")
	}
	var payload payloads.SnapshotCreatedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if payload.SnapshotID == uuid.Nil {
		return nil, fmt.Errorf("snapshot id missing")
	}
	if payload.CampaignID == uuid.Nil {
		return nil, fmt.Errorf("campaign id missing")
	}

	return &snapshotFactRow{
		EventID:          envelope.EventID,
		SnapshotID:       payload.SnapshotID.String(),
		CampaignID:       payload.CampaignID.String(),
		TotalImpressions: payload.TotalImpressions,
		TotalEngagements: payload.TotalEngagements,
		TotalClicks:      payload.TotalClicks,
		TotalConversions: payload.TotalConversions,
		TotalSpend:       payload.TotalSpend,
		SnapshotType:     string(payload.SnapshotType),
		OccurredAt:       envelope.OccurredAt.UTC(),
	}, nil
}
