package snapshots

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/metricmind/performancecore-backend/pkg/db/models"
	"github.com/metricmind/performancecore-backend/pkg/enums"
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

func setupSnapshotsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS metric_snapshots (
  id TEXT PRIMARY KEY,
  campaign_id TEXT NOT NULL,
  total_impressions INTEGER NOT NULL DEFAULT 0,
  total_engagements INTEGER NOT NULL DEFAULT 0,
  total_clicks INTEGER NOT NULL DEFAULT 0,
  total_conversions INTEGER NOT NULL DEFAULT 0,
  total_spend TEXT NOT NULL DEFAULT '0',
  snapshot_type TEXT NOT NULL DEFAULT 'automatic',
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestCreatePersistsAndEmits(t *testing.T) {
	db := setupSnapshotsTestDB(t)
	emitter := &recordingEmitter{}
	store, err := NewStore(gormTxRunner{db: db}, db, emitter)
	require.NoError(t, err)

	campaignID := uuid.New()
	created, err := store.Create(context.Background(), CreateInput{
		CampaignID:       campaignID,
		TotalImpressions: 1200,
		TotalEngagements: 13,
		TotalClicks:      85,
		TotalConversions: 4,
		TotalSpend:       "45.31",
		SnapshotType:     enums.SnapshotTypeAutomatic,
	})
	require.NoError(t, err)
	assert.Equal(t, campaignID, created.CampaignID)
	assert.Equal(t, "45.31", created.TotalSpend.StringFixed(2))

	var count int64
	require.NoError(t, db.Model(&models.MetricSnapshot{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	require.Len(t, emitter.events, 1)
	event := emitter.events[0]
	assert.Equal(t, enums.EventSnapshotCreated, event.EventType)
	assert.Equal(t, created.ID, event.AggregateID)
	payload, ok := event.Data.(payloads.SnapshotCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, "45.31", payload.TotalSpend)
}

func TestCreateRejectsMalformedSpend(t *testing.T) {
	db := setupSnapshotsTestDB(t)
	store, err := NewStore(gormTxRunner{db: db}, db, nil)
	require.NoError(t, err)

	_, err = store.Create(context.Background(), CreateInput{
		CampaignID:   uuid.New(),
		TotalSpend:   "not-a-number",
		SnapshotType: enums.SnapshotTypeAutomatic,
	})
	require.Error(t, err)
}

func TestCreateRejectsInvalidType(t *testing.T) {
	db := setupSnapshotsTestDB(t)
	store, err := NewStore(gormTxRunner{db: db}, db, nil)
	require.NoError(t, err)

	_, err = store.Create(context.Background(), CreateInput{
		CampaignID:   uuid.New(),
		TotalSpend:   "0.00",
		SnapshotType: enums.SnapshotType("bogus"),
	})
	require.Error(t, err)
}

func TestLatestPicksNewest(t *testing.T) {
	db := setupSnapshotsTestDB(t)
	store, err := NewStore(gormTxRunner{db: db}, db, nil)
	require.NoError(t, err)

	campaignID := uuid.New()

	missing, err := store.Latest(context.Background(), campaignID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	old := models.MetricSnapshot{ID: uuid.New(), CampaignID: campaignID, TotalClicks: 1, SnapshotType: enums.SnapshotTypeAutomatic, CreatedAt: time.Now().Add(-time.Hour)}
	current := models.MetricSnapshot{ID: uuid.New(), CampaignID: campaignID, TotalClicks: 2, SnapshotType: enums.SnapshotTypeAutomatic, CreatedAt: time.Now()}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&current).Error)

	latest, err := store.Latest(context.Background(), campaignID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.EqualValues(t, 2, latest.TotalClicks)

	rows, err := store.ListByCampaign(context.Background(), campaignID, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
