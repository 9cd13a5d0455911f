package command

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels for commandsTotal.
const (
	outcomeReply    = "reply"    // normal answer
	outcomeGuidance = "guidance" // user mistake answered with guidance text
	outcomeError    = "error"    // inference failure
)

var (
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llamabot",
			Subsystem: "command",
			Name:      "total",
			Help:      "Executed commands by command word and outcome",
		},
		[]string{"command", "outcome"},
	)

	inflightAsks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "llamabot",
			Subsystem: "command",
			Name:      "inflight_asks",
			Help:      "Ask commands currently waiting on the inference service",
		},
	)
)

func init() {
	prometheus.MustRegister(commandsTotal, inflightAsks)
}
