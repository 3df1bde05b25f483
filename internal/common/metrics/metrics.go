// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluations_total",
			Help: "Evaluations finished, by track and outcome or error code",
		},
		[]string{"track", "outcome"},
	)

	EvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evaluation_duration_seconds",
			Help:    "End-to-end evaluation latency",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 90, 120},
		},
		[]string{"track"},
	)

	EvaluatorRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluator_runs_total",
			Help: "Evaluator invocations by kind and status",
		},
		[]string{"kind", "status"},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_retries_total",
			Help: "Retried calls to upstream capabilities",
		},
		[]string{"capability"},
	)

	SchemaRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_retries_total",
			Help: "Stricter re-asks after an engine reply failed schema validation",
		},
		[]string{"kind"},
	)

	FollowupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "followup_failures_total",
			Help: "Failed fire-and-forget follow-up tasks",
		},
		[]string{"task"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)
