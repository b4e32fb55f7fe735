package analysis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricModelCallDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "daybook",
	Name:      "model_call_duration_seconds",
	Help:      "Wall-clock latency of analysis model calls, failed ones included.",
	Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 90},
})

func recordModelCall(start time.Time) {
	metricModelCallDuration.Observe(time.Since(start).Seconds())
}
