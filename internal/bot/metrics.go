package bot

import "github.com/prometheus/client_golang/prometheus"

var roomEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "llamabot",
		Subsystem: "matrix",
		Name:      "room_events_total",
		Help:      "Room message events seen by the bot, by handling result",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(roomEventsTotal)
}
