package businessflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IPN notifications partitioned by how the ingress answered
	ipnNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ipn_notifications_total",
			Help: "Total number of NOWPayments IPN notifications received",
		},
		[]string{"result"},
	)

	settlementOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_outcomes_total",
			Help: "Settlement decisions partitioned by outcome and final state",
		},
		[]string{"outcome", "state"},
	)

	settlementCollaboratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settlement_collaborator_duration_seconds",
			Help:    "Latency of settlement collaborator calls in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation", "result"},
	)

	settlementManualReviewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_manual_reviews_total",
			Help: "Manual reviews opened partitioned by failed stage",
		},
		[]string{"stage"},
	)

	settlementExecutorQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "settlement_executor_queue_depth",
			Help: "Number of settlement tasks waiting for a worker",
		},
	)
)

func observeCollaborator(operation string, start time.Time, err error) {
	result := "ok"
	switch {
	case IsCollaboratorTimeout(err):
		result = "timeout"
	case err != nil:
		result = "error"
	}
	settlementCollaboratorDuration.WithLabelValues(operation, result).Observe(time.Since(start).Seconds())
}
