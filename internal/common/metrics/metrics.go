// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AskAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_ask_attempts_total",
			Help: "Total number of HTTP attempts made against the question-answering endpoint",
		},
		[]string{"outcome"},
	)

	AskRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_ask_requests_total",
			Help: "Total number of Ask calls by terminal outcome",
		},
		[]string{"outcome"},
	)

	AskBackoff = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rag_ask_backoff_seconds",
			Help:    "Backoff waits between Ask attempts",
			Buckets: prometheus.LinearBuckets(2, 2, 5),
		},
	)

	AskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rag_ask_duration_seconds",
			Help:    "Duration of Ask calls including retries",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 240},
		},
		[]string{"outcome"},
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

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_http_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "api_http_request_duration_seconds",
			Help: "Duration of API requests in seconds",
		},
		[]string{"method", "route"},
	)

	EntriesSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "entries_submitted_total",
			Help: "Total number of job entries submitted",
		},
	)

	FeedSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "entries_feed_subscribers",
			Help: "Number of open entry feed subscriptions",
		},
	)

	FinancialsCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "financials_cache_lookups_total",
			Help: "Financials cache lookups by result",
		},
		[]string{"result"},
	)
)
