// Package metrics holds the Prometheus collectors of the interview service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Report sources.
const (
	SourceOracle   = "oracle"
	SourceFallback = "fallback"
)

var (
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "interviewer_sessions_created_total",
			Help: "Total number of interview sessions created",
		},
	)

	AnswersEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "interviewer_answers_evaluated_total",
			Help: "Total number of answers evaluated",
		},
	)

	ReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interviewer_reports_generated_total",
			Help: "Total number of final reports by source",
		},
		[]string{"source"},
	)

	OracleRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interviewer_oracle_requests_total",
			Help: "Total number of language model calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	OracleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "interviewer_oracle_request_duration_seconds",
			Help:    "Duration of language model calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"operation"},
	)
)

// ObserveOracle records one oracle call started at start.
func ObserveOracle(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	OracleRequests.WithLabelValues(operation, outcome).Inc()
	OracleDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
