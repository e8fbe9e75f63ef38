package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rendezvous"

type Metrics struct {
	OnlineUsers     prometheus.Gauge
	OpenConnections prometheus.Gauge
	MessagesSent    *prometheus.CounterVec
	SendFailures    *prometheus.CounterVec
	EventsDelivered *prometheus.CounterVec
	EventsDropped   prometheus.Counter
}

func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		OnlineUsers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_users",
			Help:      "Users with at least one open real-time connection.",
		}),
		OpenConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_connections",
			Help:      "Open real-time connections.",
		}),
		MessagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Persisted messages, by whether the recipient was viewing the conversation.",
		}, []string{"read"}),
		SendFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Rejected or failed sends, by error code.",
		}, []string{"code"}),
		EventsDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_delivered_total",
			Help:      "Events enqueued to connections, by method.",
		}, []string{"method"}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped because the connection queue was full.",
		}),
	}
}
