package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/metricmind/performancecore-backend/api/handlers"
	"github.com/metricmind/performancecore-backend/api/middleware"
	"github.com/metricmind/performancecore-backend/pkg/config"
	"github.com/metricmind/performancecore-backend/pkg/logger"
	"github.com/metricmind/performancecore-backend/pkg/redis"
)

// RouterParams carries the collaborators the ops API exposes.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	Pingers         []redis.Pinger
	Supervisor      handlers.StatusLister
	Campaigns       handlers.CampaignFinder
	SnapshotTrigger handlers.SnapshotTrigger
	FrequencySetter handlers.FrequencySetter
	MetricsHandler  http.Handler
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/healthz", func(r chi.Router) {
		r.Get("/", handlers.HealthLive(cfg))
		r.Get("/live", handlers.HealthLive(cfg))
		r.Get("/ready", handlers.HealthReady(cfg, logg, params.Pingers...))
	})

	if params.MetricsHandler != nil {
		r.Handle("/metrics", params.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/schedulers", handlers.SchedulerStatuses(params.Supervisor, logg))
		r.Put("/schedulers/snapshot/frequency", handlers.UpdateSnapshotFrequency(params.FrequencySetter, logg))
		r.Post("/campaigns/{campaignId}/snapshots", handlers.TriggerCampaignSnapshot(params.Campaigns, params.SnapshotTrigger, logg))
	})

	return r
}
