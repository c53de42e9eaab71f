package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/metricmind/performancecore-backend/pkg/db/models"
	"github.com/metricmind/performancecore-backend/pkg/enums"
	"github.com/metricmind/performancecore-backend/pkg/logger"
)

func setupSourcesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS import_sessions (
  id TEXT PRIMARY KEY,
  campaign_id TEXT NOT NULL,
  platform TEXT NOT NULL,
  imported_at DATETIME NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS import_metric_rows (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  metric_key TEXT NOT NULL,
  metric_value TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS integration_metrics (
  id TEXT PRIMARY KEY,
  campaign_id TEXT NOT NULL,
  integration_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  captured_at DATETIME NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS analytics_daily_facts (
  id TEXT PRIMARY KEY,
  campaign_id TEXT NOT NULL,
  fact_date DATETIME NOT NULL,
  platform TEXT NOT NULL,
  impressions INTEGER NOT NULL DEFAULT 0,
  engagements INTEGER NOT NULL DEFAULT 0,
  clicks INTEGER NOT NULL DEFAULT 0,
  conversions INTEGER NOT NULL DEFAULT 0,
  spend TEXT NOT NULL DEFAULT '0',
  revenue TEXT NOT NULL DEFAULT '0',
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
  id TEXT PRIMARY KEY,
  campaign_id TEXT NOT NULL,
  entry_type TEXT NOT NULL,
  amount TEXT NOT NULL,
  occurred_at DATETIME NOT NULL,
  created_at DATETIME
);`,
	}
	for _, schema := range schemas {
		require.NoError(t, db.Exec(schema).Error)
	}
	return db
}

func createSession(t *testing.T, db *gorm.DB, campaignID uuid.UUID, importedAt time.Time) *models.ImportSession {
	t.Helper()
	session := &models.ImportSession{
		ID:         uuid.New(),
		CampaignID: campaignID,
		Platform:   "linkedin",
		ImportedAt: importedAt,
	}
	require.NoError(t, db.Create(session).Error)
	return session
}

func createMetricRow(t *testing.T, db *gorm.DB, sessionID uuid.UUID, key, value string) {
	t.Helper()
	row := &models.ImportMetricRow{
		ID:          uuid.New(),
		SessionID:   sessionID,
		MetricKey:   key,
		MetricValue: value,
	}
	require.NoError(t, db.Create(row).Error)
}

func TestAdsImportRollsUpLatestSession(t *testing.T) {
	db := setupSourcesTestDB(t)
	source := NewAdsImportSource(db)
	campaignID := uuid.New()

	stale := createSession(t, db, campaignID, time.Now().Add(-48*time.Hour))
	createMetricRow(t, db, stale.ID, "impressions", "999999")

	latest := createSession(t, db, campaignID, time.Now().Add(-time.Hour))
	createMetricRow(t, db, latest.ID, "Impressions", "700")
	createMetricRow(t, db, latest.ID, "impressions", "500")
	createMetricRow(t, db, latest.ID, "clicks", "85")
	createMetricRow(t, db, latest.ID, "spend", "45.30")
	createMetricRow(t, db, latest.ID, "ctr_percent", "1.2")
	createMetricRow(t, db, latest.ID, "conversions", "garbage")

	got, err := source.FetchLatest(context.Background(), campaignID)
	require.NoError(t, err)

	// Rows sharing a key roll up; keys outside the taxonomy are dropped and
	// malformed values coerce to zero.
	assert.Equal(t, 1200.0, got[enums.MetricImpressions])
	assert.Equal(t, 85.0, got[enums.MetricClicks])
	assert.Equal(t, 45.30, got[enums.MetricSpend])
	assert.Equal(t, 0.0, got[enums.MetricConversions])
	assert.NotContains(t, got, enums.MetricKey("ctr_percent"))
}

func TestAdsImportNoSessionsIsEmpty(t *testing.T) {
	db := setupSourcesTestDB(t)
	source := NewAdsImportSource(db)

	got, err := source.FetchLatest(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIntegrationReadsLatestRecord(t *testing.T) {
	db := setupSourcesTestDB(t)
	source := NewIntegrationSource(db)
	campaignID := uuid.New()
	integrationID := uuid.New()

	old := &models.IntegrationMetrics{
		ID:            uuid.New(),
		CampaignID:    campaignID,
		IntegrationID: integrationID,
		Payload:       []byte(`{"impressions": 1}`),
		CapturedAt:    time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, db.Create(old).Error)

	current := &models.IntegrationMetrics{
		ID:            uuid.New(),
		CampaignID:    campaignID,
		IntegrationID: integrationID,
		Payload:       []byte(`{"Spend": "45.30", "clicks": 10, "bounce_rate": 0.4}`),
		CapturedAt:    time.Now().Add(-time.Minute),
	}
	require.NoError(t, db.Create(current).Error)

	got, err := source.FetchLatest(context.Background(), campaignID)
	require.NoError(t, err)
	assert.Equal(t, 45.30, got[enums.MetricSpend])
	assert.Equal(t, 10.0, got[enums.MetricClicks])
	assert.NotContains(t, got, enums.MetricKey("bounce_rate"))
}

func TestIntegrationAbsentRecordIsEmpty(t *testing.T) {
	db := setupSourcesTestDB(t)
	source := NewIntegrationSource(db)

	got, err := source.FetchLatest(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAnalyticsUsesMostRecentDayOnly(t *testing.T) {
	db := setupSourcesTestDB(t)
	source := NewAnalyticsSource(db)
	campaignID := uuid.New()

	today := time.Now().UTC().Truncate(24 * time.Hour)
	yesterday := today.Add(-24 * time.Hour)

	for _, fact := range []*models.AnalyticsDailyFact{
		{ID: uuid.New(), CampaignID: campaignID, FactDate: yesterday, Platform: "web", Impressions: 9999},
		{ID: uuid.New(), CampaignID: campaignID, FactDate: today, Platform: "web", Impressions: 100, Clicks: 7, Spend: decimal.NewFromFloat(12.50)},
		{ID: uuid.New(), CampaignID: campaignID, FactDate: today, Platform: "mobile", Impressions: 50, Clicks: 3, Spend: decimal.NewFromFloat(2.50)},
	} {
		require.NoError(t, db.Create(fact).Error)
	}

	got, err := source.FetchLatest(context.Background(), campaignID)
	require.NoError(t, err)
	assert.Equal(t, 150.0, got[enums.MetricImpressions])
	assert.Equal(t, 10.0, got[enums.MetricClicks])
	assert.Equal(t, 15.0, got[enums.MetricSpend])
}

func TestLedgerSumsByEntryType(t *testing.T) {
	db := setupSourcesTestDB(t)
	source := NewLedgerSource(db)
	campaignID := uuid.New()

	for _, entry := range []*models.LedgerEntry{
		{ID: uuid.New(), CampaignID: campaignID, EntryType: enums.LedgerEntrySpend, Amount: decimal.NewFromFloat(10.25), OccurredAt: time.Now()},
		{ID: uuid.New(), CampaignID: campaignID, EntryType: enums.LedgerEntrySpend, Amount: decimal.NewFromFloat(4.75), OccurredAt: time.Now()},
		{ID: uuid.New(), CampaignID: campaignID, EntryType: enums.LedgerEntryRevenue, Amount: decimal.NewFromFloat(99.99), OccurredAt: time.Now()},
	} {
		require.NoError(t, db.Create(entry).Error)
	}

	got, err := source.FetchLatest(context.Background(), campaignID)
	require.NoError(t, err)
	assert.Equal(t, 15.0, got[enums.MetricSpend])
	assert.Equal(t, 99.99, got[enums.MetricRevenue])
}

type failingSource struct{}

func (failingSource) Name() string { return "broken" }

func (failingSource) FetchLatest(context.Context, uuid.UUID) (Metrics, error) {
	return nil, errors.New("collaborator unavailable")
}

func TestBoundarySwallowsFailures(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	guarded := Guard(failingSource{}, logg, nil, "snapshot")

	got, err := guarded.FetchLatest(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, "broken", guarded.Name())
}
