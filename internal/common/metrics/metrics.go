// Package metrics declares the Prometheus collectors served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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

	// WizardTransitions counts every wizard state change attempt.
	// outcome: advanced, blocked, back, submitted, failed, dismissed.
	WizardTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hireflow_wizard_transitions_total",
			Help: "Wizard transitions by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	WizardSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hireflow_wizard_sessions_active",
			Help: "Wizard sessions currently held in memory",
		},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hireflow_submission_duration_seconds",
			Help:    "Transport duration from payload validation to insert",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	ResumeUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hireflow_resume_upload_bytes",
			Help:    "Size of uploaded resumes",
			Buckets: prometheus.ExponentialBuckets(16*1024, 4, 6),
		},
	)

	FollowUpFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hireflow_followup_failures_total",
			Help: "Best-effort steps after insert that failed",
		},
		[]string{"step"},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hireflow_notifications_created_total",
			Help: "Notifications written, by type",
		},
		[]string{"type"},
	)

	JobCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hireflow_job_cache_lookups_total",
			Help: "Job posting cache lookups by result",
		},
		[]string{"result"},
	)
)
