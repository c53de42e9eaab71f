package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/metricmind/performancecore-backend/pkg/enums"
	"github.com/metricmind/performancecore-backend/pkg/logger"
	"github.com/metricmind/performancecore-backend/pkg/outbox"
	"github.com/metricmind/performancecore-backend/pkg/outbox/payloads"
)

func TestExporterWritesSnapshotFact(t *testing.T) {
	inserter := &fakeInserter{}
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
	exporter := mustExporter(t, inserter, manager)

	snapshotID := uuid.New()
	campaignID := uuid.New()
	envelope := buildEnvelope(t, uuid.New(), payloads.SnapshotCreatedEvent{
		SnapshotID:       snapshotID,
		CampaignID:       campaignID,
		TotalImpressions: 1200,
		TotalClicks:      85,
		TotalSpend:       "45.31",
		SnapshotType:     enums.SnapshotTypeAutomatic,
	})

	if err := exporter.Process(context.Background(), enums.EventSnapshotCreated, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(inserter.rows) != 1 {
		t.Fatalf("expected 1 row inserted, got %d", len(inserter.rows))
	}
	row, ok := inserter.rows[0].(*snapshotFactRow)
	if !ok {
		t.Fatalf("expected snapshotFactRow, got %T", inserter.rows[0])
	}
	if row.SnapshotID != snapshotID.String() {
		t.Fatalf("snapshot id mismatch: %s", row.SnapshotID)
	}
	if row.CampaignID != campaignID.String() {
		t.Fatalf("campaign id mismatch: %s", row.CampaignID)
	}
	if row.TotalSpend != "45.31" {
		t.Fatalf("unexpected spend: %s", row.TotalSpend)
	}
	if row.SnapshotType != string(enums.SnapshotTypeAutomatic) {
		t.Fatalf("unexpected snapshot type: %s", row.SnapshotType)
	}
}

func TestExporterIgnoresOtherEventTypes(t *testing.T) {
	inserter := &fakeInserter{}
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			t.Fatal("idempotency should not be consulted for skipped events")
			return false, nil
		},
	}
	exporter := mustExporter(t, inserter, manager)

	envelope := buildEnvelope(t, uuid.New(), map[string]any{})
	if err := exporter.Process(context.Background(), enums.EventReportDispatched, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(inserter.rows) != 0 {
		t.Fatalf("expected no rows for unrelated event")
	}
}

func TestExporterIsIdempotent(t *testing.T) {
	inserter := &fakeInserter{}
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return true, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
	exporter := mustExporter(t, inserter, manager)

	envelope := buildEnvelope(t, uuid.New(), payloads.SnapshotCreatedEvent{
		SnapshotID: uuid.New(),
		CampaignID: uuid.New(),
		TotalSpend: "1.00",
	})
	if err := exporter.Process(context.Background(), enums.EventSnapshotCreated, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(inserter.rows) != 0 {
		t.Fatalf("expected no rows inserted when idempotent")
	}
}

func TestExporterRetriesThenDeletesMarkerOnFailure(t *testing.T) {
	inserter := &fakeInserter{err: errors.New("bigquery down")}
	deleted := false
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	exporter := mustExporter(t, inserter, manager)

	envelope := buildEnvelope(t, uuid.New(), payloads.SnapshotCreatedEvent{
		SnapshotID: uuid.New(),
		CampaignID: uuid.New(),
		TotalSpend: "2.50",
	})
	if err := exporter.Process(context.Background(), enums.EventSnapshotCreated, envelope); err == nil {
		t.Fatalf("expected error when insert fails")
	}
	if inserter.calls != insertAttempts {
		t.Fatalf("expected %d insert attempts, got %d", insertAttempts, inserter.calls)
	}
	if !deleted {
		t.Fatalf("expected idempotency key deletion on failure")
	}
}

func TestExporterRejectsMalformedPayload(t *testing.T) {
	inserter := &fakeInserter{}
	deleted := false
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	exporter := mustExporter(t, inserter, manager)

	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       []byte("{invalid json"),
	}
	if err := exporter.Process(context.Background(), enums.EventSnapshotCreated, envelope); err == nil {
		t.Fatalf("expected error for bad payload")
	}
	if !deleted {
		t.Fatalf("expected idempotency key deletion on payload error")
	}
	if len(inserter.rows) != 0 {
		t.Fatalf("expected no rows inserted on payload failure")
	}
}

type fakeInserter struct {
	rows  []any
	err   error
	calls int
}

func (f *fakeInserter) InsertRows(ctx context.Context, table string, rows []any) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, rows...)
	return nil
}

type fakeIdempotency struct {
	check    func(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	deleteFn func(ctx context.Context, consumer string, eventID uuid.UUID) error
}

func (f fakeIdempotency) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	return f.check(ctx, consumer, eventID)
}

func (f fakeIdempotency) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	return f.deleteFn(ctx, consumer, eventID)
}

func mustExporter(t *testing.T, inserter *fakeInserter, manager fakeIdempotency) *Exporter {
	t.Helper()
	exporter, err := NewExporter(inserter, "snapshot_facts", manager, logger.New(logger.Options{
		ServiceName: "warehouse-test",
		Level:       logger.ParseLevel("debug"),
		Output:      io.Discard,
	}))
	if err != nil {
		t.Fatalf("failed to build exporter: %v", err)
	}
	return exporter
}

func buildEnvelope(t *testing.T, eventID uuid.UUID, payload any) outbox.PayloadEnvelope {
	t.Helper()
	bytes, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now(),
		Data:       bytes,
	}
}
