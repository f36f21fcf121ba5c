package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OracleRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kazi_oracle_requests_total",
			Help: "Total number of AI service calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	OracleRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kazi_oracle_request_duration_seconds",
			Help:    "AI service call duration in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"operation"},
	)

	AIScoreHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kazi_ai_score",
			Help:    "Distribution of AI scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kazi_submissions_total",
			Help: "Total number of submissions by grading outcome",
		},
		[]string{"outcome"},
	)

	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kazi_extractions_total",
			Help: "Total number of file text extractions by file type and outcome",
		},
		[]string{"ext", "outcome"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kazi_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)

// outcomes
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)
