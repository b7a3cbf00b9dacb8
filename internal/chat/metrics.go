package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	connectedClients = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gochat",
		Name:      "connected_clients",
		Help:      "Clients currently registered, by transport.",
	}, []string{"transport"})

	sessionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gochat",
		Name:      "sessions_total",
		Help:      "Connections accepted, by transport.",
	}, []string{"transport"})

	messagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gochat",
		Name:      "messages_total",
		Help:      "Chat messages read from clients and broadcast.",
	})

	droppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gochat",
		Name:      "messages_dropped_total",
		Help:      "Chat messages discarded by the per-connection rate limit.",
	})

	deliveriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gochat",
		Name:      "deliveries_total",
		Help:      "Successful writes of a broadcast to one destination.",
	})

	deliveryFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gochat",
		Name:      "delivery_failures_total",
		Help:      "Failed writes of a broadcast to one destination.",
	})
)

func init() {
	prometheus.MustRegister(
		connectedClients,
		sessionsTotal,
		messagesTotal,
		droppedTotal,
		deliveriesTotal,
		deliveryFailuresTotal,
	)
}
