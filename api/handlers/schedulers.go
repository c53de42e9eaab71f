package handlers

import (
	"net/http"

	"github.com/metricmind/performancecore-backend/api/responses"
	"github.com/metricmind/performancecore-backend/api/validators"
	"github.com/metricmind/performancecore-backend/internal/schedulers"
	"github.com/metricmind/performancecore-backend/pkg/enums"
	pkgerrors "github.com/metricmind/performancecore-backend/pkg/errors"
	"github.com/metricmind/performancecore-backend/pkg/logger"
)

// StatusLister reports the state of every registered scheduler.
type StatusLister interface {
	Statuses() []schedulers.Status
}

// FrequencySetter reconfigures the snapshot cadence at runtime.
type FrequencySetter interface {
	SetFrequency(freq enums.Frequency) error
}

func SchedulerStatuses(supervisor StatusLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if supervisor == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scheduler supervisor not configured"))
			return
		}
		responses.WriteSuccess(w, supervisor.Statuses())
	}
}

type updateFrequencyRequest struct {
	Frequency string `json:"frequency" validate:"required,oneof=hourly daily weekly"`
}

func UpdateSnapshotFrequency(setter FrequencySetter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if setter == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "snapshot scheduler not configured"))
			return
		}

		var req updateFrequencyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		freq, err := enums.ParseFrequency(req.Frequency)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid frequency"))
			return
		}
		if err := setter.SetFrequency(freq); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"frequency": freq.String()})
	}
}
