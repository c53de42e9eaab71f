package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/metricmind/performancecore-backend/internal/schedulers"
	"github.com/metricmind/performancecore-backend/pkg/config"
	"github.com/metricmind/performancecore-backend/pkg/db/models"
	"github.com/metricmind/performancecore-backend/pkg/enums"
	pkgerrors "github.com/metricmind/performancecore-backend/pkg/errors"
	"github.com/metricmind/performancecore-backend/pkg/logger"
	"github.com/metricmind/performancecore-backend/pkg/outbox"
	"github.com/metricmind/performancecore-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSupervisor struct{}

func (stubSupervisor) Statuses() []schedulers.Status {
	return []schedulers.Status{{Name: "snapshot", Running: true, Frequency: enums.FrequencyDaily}}
}

type stubCampaigns struct {
	known uuid.UUID
}

func (s stubCampaigns) FindByID(_ context.Context, id uuid.UUID) (*models.Campaign, error) {
	if id != s.known {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
	}
	return &models.Campaign{ID: id, Name: "Spring Launch"}, nil
}

type stubTrigger struct {
	written bool
}

func (s stubTrigger) SnapshotCampaign(_ context.Context, campaignID uuid.UUID, snapshotType enums.SnapshotType, _ *outbox.TriggerRef) (*models.MetricSnapshot, bool, error) {
	if !s.written {
		return nil, false, nil
	}
	return &models.MetricSnapshot{
		ID:           uuid.New(),
		CampaignID:   campaignID,
		TotalClicks:  85,
		TotalSpend:   decimal.RequireFromString("45.31"),
		SnapshotType: snapshotType,
		CreatedAt:    time.Now(),
	}, true, nil
}

type stubFrequencySetter struct {
	applied enums.Frequency
}

func (s *stubFrequencySetter) SetFrequency(freq enums.Frequency) error {
	s.applied = freq
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
	}
}

func newTestRouter(campaignID uuid.UUID, written bool, setter *stubFrequencySetter) http.Handler {
	return NewRouter(RouterParams{
		Config:          testConfig(),
		Logger:          logger.New(logger.Options{ServiceName: "router-test"}),
		Pingers:         []redis.Pinger{stubPinger{}},
		Supervisor:      stubSupervisor{},
		Campaigns:       stubCampaigns{known: campaignID},
		SnapshotTrigger: stubTrigger{written: written},
		FrequencySetter: setter,
	})
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(uuid.New(), false, &stubFrequencySetter{})

	for _, path := range []string{"/healthz", "/healthz/live", "/healthz/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestSchedulerStatusesEndpoint(t *testing.T) {
	router := newTestRouter(uuid.New(), false, &stubFrequencySetter{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedulers", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope struct {
		Data []schedulers.Status `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].Name != "snapshot" {
		t.Fatalf("unexpected statuses: %+v", envelope.Data)
	}
}

func TestManualSnapshotWritten(t *testing.T) {
	campaignID := uuid.New()
	router := newTestRouter(campaignID, true, &stubFrequencySetter{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/"+campaignID.String()+"/snapshots", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"total_spend":"45.31"`) {
		t.Fatalf("expected spend in response, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"snapshot_type":"manual"`) {
		t.Fatalf("expected manual snapshot type, got %s", rec.Body.String())
	}
}

func TestManualSnapshotSkippedWhenIdle(t *testing.T) {
	campaignID := uuid.New()
	router := newTestRouter(campaignID, false, &stubFrequencySetter{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/"+campaignID.String()+"/snapshots", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"written":false`) {
		t.Fatalf("expected written false, got %s", rec.Body.String())
	}
}

func TestManualSnapshotUnknownCampaign(t *testing.T) {
	router := newTestRouter(uuid.New(), true, &stubFrequencySetter{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/"+uuid.NewString()+"/snapshots", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestManualSnapshotRejectsBadID(t *testing.T) {
	router := newTestRouter(uuid.New(), true, &stubFrequencySetter{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/not-a-uuid/snapshots", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateSnapshotFrequency(t *testing.T) {
	setter := &stubFrequencySetter{}
	router := newTestRouter(uuid.New(), false, setter)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/schedulers/snapshot/frequency", strings.NewReader(`{"frequency":"hourly"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if setter.applied != enums.FrequencyHourly {
		t.Fatalf("expected hourly applied, got %q", setter.applied)
	}
}

func TestUpdateSnapshotFrequencyRejectsUnknown(t *testing.T) {
	setter := &stubFrequencySetter{}
	router := newTestRouter(uuid.New(), false, setter)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/schedulers/snapshot/frequency", strings.NewReader(`{"frequency":"fortnightly"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if setter.applied != "" {
		t.Fatalf("frequency should not be applied, got %q", setter.applied)
	}
}
