package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/metricmind/performancecore-backend/pkg/db/models"
	"github.com/metricmind/performancecore-backend/pkg/enums"
	"github.com/metricmind/performancecore-backend/pkg/logger"
	"github.com/metricmind/performancecore-backend/pkg/outbox"
	"github.com/metricmind/performancecore-backend/pkg/outbox/payloads"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (e *recordingEmitter) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		panic("emit outside transaction")
	}
	e.events = append(e.events, event)
	return nil
}

func setupReportsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS scheduled_reports (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  frequency TEXT NOT NULL DEFAULT 'daily',
  recipients TEXT,
  active INTEGER NOT NULL DEFAULT 1,
  next_run_at DATETIME NOT NULL,
  last_run_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newReportService(t *testing.T, db *gorm.DB, emitter Emitter, now func() time.Time) *Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		DB:      db,
		Tx:      gormTxRunner{db: db},
		Emitter: emitter,
		Now:     now,
	})
	require.NoError(t, err)
	return svc
}

func TestDispatchDueReportAdvancesSchedule(t *testing.T) {
	db := setupReportsTestDB(t)
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	report := models.ScheduledReport{
		ID:         uuid.New(),
		Name:       "Daily digest",
		Frequency:  enums.FrequencyDaily,
		Recipients: pq.StringArray{"team@example.com"},
		Active:     true,
		NextRunAt:  now.Add(-10 * time.Minute),
	}
	require.NoError(t, db.Create(&report).Error)

	emitter := &recordingEmitter{}
	svc := newReportService(t, db, emitter, func() time.Time { return now })

	svc.runCycle(context.Background())

	var updated models.ScheduledReport
	require.NoError(t, db.First(&updated, "id = ?", report.ID).Error)
	require.NotNil(t, updated.LastRunAt)
	assert.WithinDuration(t, now, *updated.LastRunAt, time.Second)
	assert.True(t, updated.NextRunAt.After(now))

	require.Len(t, emitter.events, 1)
	event := emitter.events[0]
	assert.Equal(t, enums.EventReportDispatched, event.EventType)
	assert.Equal(t, report.ID, event.AggregateID)
	payload, ok := event.Data.(payloads.ReportDispatchedEvent)
	require.True(t, ok)
	assert.Equal(t, "Daily digest", payload.Name)
	assert.Equal(t, []string{"team@example.com"}, payload.Recipients)
}

func TestDispatchSkipsInactiveAndFutureReports(t *testing.T) {
	db := setupReportsTestDB(t)
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	inactive := models.ScheduledReport{
		ID:        uuid.New(),
		Name:      "Paused digest",
		Frequency: enums.FrequencyDaily,
		Active:    false,
		NextRunAt: now.Add(-time.Hour),
	}
	future := models.ScheduledReport{
		ID:        uuid.New(),
		Name:      "Tomorrow digest",
		Frequency: enums.FrequencyDaily,
		Active:    true,
		NextRunAt: now.Add(time.Hour),
	}
	require.NoError(t, db.Create(&inactive).Error)
	require.NoError(t, db.Create(&future).Error)

	emitter := &recordingEmitter{}
	svc := newReportService(t, db, emitter, func() time.Time { return now })

	svc.runCycle(context.Background())

	assert.Empty(t, emitter.events)
}

func TestNextRunAfterSkipsMissedSlots(t *testing.T) {
	now := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)
	// Last scheduled three days ago; the schedule keeps its original phase.
	prev := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

	next := nextRunAfter(prev, enums.FrequencyDaily, now)
	assert.Equal(t, time.Date(2026, 3, 6, 6, 0, 0, 0, time.UTC), next)
}

func TestDispatchHourlyFrequency(t *testing.T) {
	db := setupReportsTestDB(t)
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	report := models.ScheduledReport{
		ID:        uuid.New(),
		Name:      "Hourly pulse",
		Frequency: enums.FrequencyHourly,
		Active:    true,
		NextRunAt: now.Add(-time.Minute),
	}
	require.NoError(t, db.Create(&report).Error)

	svc := newReportService(t, db, &recordingEmitter{}, func() time.Time { return now })
	svc.runCycle(context.Background())

	var updated models.ScheduledReport
	require.NoError(t, db.First(&updated, "id = ?", report.ID).Error)
	assert.WithinDuration(t, now.Add(59*time.Minute), updated.NextRunAt, time.Second)
}
