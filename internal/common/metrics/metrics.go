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

	RankingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_ranking_duration_seconds",
			Help:    "Time spent scoring and sorting one candidate pool",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
		},
	)

	CandidatesScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_candidates_scored_total",
			Help: "Total number of candidates scored against a requester",
		},
	)

	CandidatesExcluded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_candidates_excluded_total",
			Help: "Candidates dropped from a ranking because scoring them failed",
		},
	)

	RankingCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_ranking_cache_lookups_total",
			Help: "Ranking cache lookups by result",
		},
		[]string{"result"},
	)

	MatchDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_decisions_total",
			Help: "Match decisions recorded by role and resulting status",
		},
		[]string{"role", "status"},
	)
)
