package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricCyclesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "daybook",
		Name:      "cycles_started_total",
		Help:      "Number of reflection cycles begun by a greeting or /diary.",
	})
	metricCyclesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "daybook",
		Name:      "cycles_completed_total",
		Help:      "Number of reflection cycles that persisted a diary record.",
	})
	metricCyclesCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "daybook",
		Name:      "cycles_cancelled_total",
		Help:      "Number of in-flight reflection cycles ended by /cancel.",
	})
	metricSectionsDefaulted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "daybook",
		Name:      "analysis_sections_defaulted_total",
		Help:      "Count of feedback sections filled with default text because the model omitted them.",
	})
	metricRecordPersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "daybook",
		Name:      "record_persist_failures_total",
		Help:      "Number of diary record writes that failed during finalization.",
	})
	metricAudioFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "daybook",
		Name:      "audio_synthesis_failures_total",
		Help:      "Number of section audio files that could not be synthesized.",
	})
)

func recordCycleStart() {
	metricCyclesStarted.Inc()
}

func recordCycleComplete() {
	metricCyclesCompleted.Inc()
}

func recordCycleCancel() {
	metricCyclesCancelled.Inc()
}

func recordDefaultedSections(n int) {
	if n > 0 {
		metricSectionsDefaulted.Add(float64(n))
	}
}

func recordPersistFailure() {
	metricRecordPersistFailures.Inc()
}

func recordAudioFailure() {
	metricAudioFailures.Inc()
}
