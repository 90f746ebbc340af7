package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AI provider dispatch metrics, recorded by aiprovider.Chain.attemptWithRetry
// on every call attempt — low-cardinality (provider name + outcome only, no
// camera/event id labels).
var (
	// AIInferenceTotal counts total dispatch attempts by provider and outcome.
	AIInferenceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_inference_total",
			Help: "Total AI provider dispatch attempts by provider and outcome",
		},
		[]string{"provider", "label"},
	)

	// AIInferenceLatency tracks per-provider dispatch latency.
	AIInferenceLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_inference_latency_ms",
			Help:    "AI provider dispatch latency in milliseconds",
			Buckets: []float64{50, 100, 200, 500, 1000, 2000, 5000},
		},
		[]string{"provider"},
	)

	// AIServiceUp is a gauge for overall pipeline health.
	AIServiceUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_service_up",
			Help: "surveillance-core pipeline health status (1=up, 0=down)",
		},
	)
)

func SetServiceUp(up bool) {
	if up {
		AIServiceUp.Set(1)
	} else {
		AIServiceUp.Set(0)
	}
}
