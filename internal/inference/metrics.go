package inference

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llamabot",
			Subsystem: "inference",
			Name:      "requests_total",
			Help:      "Total number of inference requests by outcome",
		},
		[]string{"model", "outcome"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "llamabot",
			Subsystem: "inference",
			Name:      "duration_seconds",
			Help:      "Time from request send until the streamed body is fully read",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"model"},
	)

	droppedChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llamabot",
			Subsystem: "inference",
			Name:      "dropped_chunks_total",
			Help:      "Streamed lines that failed to decode and were skipped",
		},
	)

	emptyCompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llamabot",
			Subsystem: "inference",
			Name:      "empty_completions_total",
			Help:      "Successful inference responses that produced no text",
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, droppedChunksTotal, emptyCompletionsTotal)
}
