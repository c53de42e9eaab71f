package handlers

import (
	"net/http"

	"github.com/metricmind/performancecore-backend/api/responses"
	"github.com/metricmind/performancecore-backend/pkg/config"
	pkgerrors "github.com/metricmind/performancecore-backend/pkg/errors"
	"github.com/metricmind/performancecore-backend/pkg/logger"
	"github.com/metricmind/performancecore-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PerfCore-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, pingers ...redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PerfCore-Env", cfg.App.Env)

		ctx := r.Context()
		for _, p := range pingers {
			if p == nil {
				continue
			}
			if err := p.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency not ready"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
