package worker

import (
	"news-archiver/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pass run statuses.
const (
	StatusStarted = "started"
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// WorkerMetrics provides Prometheus metrics for the polling worker.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// pass-level metrics. Per-source and per-article counters live in
// internal/observability/metrics.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp: Unix timestamp of last configuration load
//   - worker_config_fallbacks_total: Total fallback operations by field
//   - worker_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Worker-specific metrics:
//   - worker_pass_runs_total: Pass runs by status (started/success/failure/skipped)
//   - worker_pass_duration_seconds: Duration histogram of whole passes
//   - worker_pass_sources_processed_total: Sources processed across all passes
//   - worker_pass_last_success_timestamp: Unix timestamp of last successful pass
type WorkerMetrics struct {
	// Embedded configuration metrics
	*config.ConfigMetrics

	// PassRunsTotal counts pass runs.
	// Labels: status
	PassRunsTotal *prometheus.CounterVec

	// PassDurationSeconds measures whole-pass duration.
	// Buckets: 10s, 30s, 1m, 5m, 15m, 30m, 1h, 2h (politeness delays dominate)
	PassDurationSeconds prometheus.Histogram

	// PassSourcesProcessedTotal counts sources processed across all passes.
	PassSourcesProcessedTotal prometheus.Counter

	// PassLastSuccessTimestamp records the Unix timestamp of the last successful pass.
	PassLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates a new WorkerMetrics instance with all metrics initialized.
// Metrics are registered with the default registry via promauto, so call it once per process.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		PassRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_pass_runs_total",
			Help: "Total number of ingest pass runs by status",
		}, []string{"status"}),

		PassDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_pass_duration_seconds",
			Help:    "Duration of ingest passes in seconds",
			Buckets: []float64{10, 30, 60, 300, 900, 1800, 3600, 7200},
		}),

		PassSourcesProcessedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_pass_sources_processed_total",
			Help: "Total number of sources processed across all passes",
		}),

		PassLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_pass_last_success_timestamp",
			Help: "Unix timestamp of the last successful ingest pass",
		}),
	}
}

// RecordPassRun increments the run counter for the given status.
func (m *WorkerMetrics) RecordPassRun(status string) {
	m.PassRunsTotal.WithLabelValues(status).Inc()
}

// RecordPassDuration observes the duration of a pass in seconds.
func (m *WorkerMetrics) RecordPassDuration(seconds float64) {
	m.PassDurationSeconds.Observe(seconds)
}

// RecordSourcesProcessed adds the number of sources processed in a pass.
func (m *WorkerMetrics) RecordSourcesProcessed(count int) {
	m.PassSourcesProcessedTotal.Add(float64(count))
}

// RecordLastSuccess records the current time as the last successful pass completion.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.PassLastSuccessTimestamp.SetToCurrentTime()
}
