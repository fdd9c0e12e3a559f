// internal/common/metrics/metrics.go
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
)

var (
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "places_cache_lookups_total",
			Help: "Result cache lookups by outcome (hit, miss)",
		},
		[]string{"category", "result"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "places_cache_evictions_total",
			Help: "Result cache entries removed, by reason (expired, capacity)",
		},
		[]string{"reason"},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "places_cache_entries",
			Help: "Entries currently held by the in-memory result cache",
		},
	)

	CacheBackendErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "places_cache_backend_errors_total",
			Help: "Cache backend failures degraded to a miss, by operation",
		},
		[]string{"backend", "op"},
	)

	TransportCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "places_transport_calls_total",
			Help: "Upstream search calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	TransportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "places_transport_duration_seconds",
			Help:    "Upstream search latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	DiscoverDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "places_discover_duration_seconds",
			Help:    "Discover latency by category and source (cache, upstream, error)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"category", "source"},
	)

	CandidatesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "places_candidates_dropped_total",
			Help: "Candidates removed during ranking, by reason (invalid, duplicate)",
		},
		[]string{"reason"},
	)
)
