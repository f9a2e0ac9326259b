package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_sessions_started_total",
		Help: "Sessions started, by phase.",
	}, []string{"phase"})

	SessionsRestored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_sessions_restored_total",
		Help: "Sessions resumed from a persisted snapshot.",
	})

	SessionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_sessions_finished_total",
		Help: "Sessions finished, by phase.",
	}, []string{"phase"})

	QuestionsScored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_questions_scored_total",
		Help: "Questions scored, by question type and outcome.",
	}, []string{"type", "outcome"})

	ScoringDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quiz_scoring_duration_seconds",
		Help:    "Wall time of the full scoring flow per question.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	BranchLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_branch_loads_total",
		Help: "Branch batch expansions, by outcome (complete or partial).",
	}, []string{"outcome"})

	ArchiveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_archive_failures_total",
		Help: "Finished sessions that could not be archived to Postgres.",
	})
)

// Handler exposes the default registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
