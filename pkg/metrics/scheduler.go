package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerMetrics records cycle outcomes for the background schedulers.
type SchedulerMetrics struct {
	duration       *prometheus.HistogramVec
	success        *prometheus.CounterVec
	failure        *prometheus.CounterVec
	snapshots      *prometheus.CounterVec
	skipped        *prometheus.CounterVec
	writeFailures  *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
}

// NewSchedulerMetrics registers the scheduler metrics on the provided registerer.
func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	if reg == nil {
		return &SchedulerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduler_cycle_duration_seconds",
		Help:    "Duration of scheduler cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"scheduler"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_cycle_success",
		Help: "Successful scheduler cycles.",
	}, []string{"scheduler"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_cycle_failure",
		Help: "Failed scheduler cycles.",
	}, []string{"scheduler"})
	snapshots := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_snapshots_written",
		Help: "Metric snapshots persisted by the snapshot scheduler.",
	}, []string{"scheduler"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_campaigns_skipped",
		Help: "Campaigns skipped by the persistence gate.",
	}, []string{"scheduler"})
	writeFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_snapshot_write_failures",
		Help: "Per-campaign snapshot writes that failed inside a cycle.",
	}, []string{"scheduler"})
	sourceFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_source_failures",
		Help: "Source fetches that degraded to an empty result.",
	}, []string{"scheduler", "source"})
	reg.MustRegister(duration, success, failure, snapshots, skipped, writeFailures, sourceFailures)
	return &SchedulerMetrics{
		duration:       duration,
		success:        success,
		failure:        failure,
		snapshots:      snapshots,
		skipped:        skipped,
		writeFailures:  writeFailures,
		sourceFailures: sourceFailures,
	}
}

// ObserveCycleDuration records the duration for the named scheduler.
func (m *SchedulerMetrics) ObserveCycleDuration(scheduler string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(scheduler)).Observe(duration.Seconds())
}

// IncCycleSuccess increments the success counter for the named scheduler.
func (m *SchedulerMetrics) IncCycleSuccess(scheduler string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(scheduler)).Inc()
}

// IncCycleFailure increments the failure counter for the named scheduler.
func (m *SchedulerMetrics) IncCycleFailure(scheduler string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(scheduler)).Inc()
}

// IncSnapshotsWritten counts a persisted snapshot.
func (m *SchedulerMetrics) IncSnapshotsWritten(scheduler string) {
	if m == nil || m.snapshots == nil {
		return
	}
	m.snapshots.WithLabelValues(normalizeLabel(scheduler)).Inc()
}

// IncCampaignsSkipped counts a campaign filtered out by the persistence gate.
func (m *SchedulerMetrics) IncCampaignsSkipped(scheduler string) {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.WithLabelValues(normalizeLabel(scheduler)).Inc()
}

// IncWriteFailure counts a failed per-campaign snapshot write.
func (m *SchedulerMetrics) IncWriteFailure(scheduler string) {
	if m == nil || m.writeFailures == nil {
		return
	}
	m.writeFailures.WithLabelValues(normalizeLabel(scheduler)).Inc()
}

// IncSourceFailure counts a degraded source fetch.
func (m *SchedulerMetrics) IncSourceFailure(scheduler, source string) {
	if m == nil || m.sourceFailures == nil {
		return
	}
	m.sourceFailures.WithLabelValues(normalizeLabel(scheduler), normalizeLabel(source)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
