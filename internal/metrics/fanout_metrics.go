package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FanoutFailuresTotal counts post-event fan-out task failures by
	// category (sensor, bus, notification, embedding, entity_match,
	// cost_alert, recognition, entity_alert, audio, anomaly).
	FanoutFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_failures_total",
			Help: "Total post-event fan-out task failures by category",
		},
		[]string{"category"},
	)

	// FanoutTaskDuration tracks how long each fan-out category takes.
	FanoutTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fanout_task_duration_ms",
			Help:    "Post-event fan-out task duration in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"category"},
	)
)

func RecordFanoutFailure(category string) {
	FanoutFailuresTotal.WithLabelValues(category).Inc()
}

func RecordFanoutDuration(category string, ms float64) {
	FanoutTaskDuration.WithLabelValues(category).Observe(ms)
}
