package wsrelay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "wsrelay"

// Metrics holds the relay's Prometheus instrumentation.
type Metrics struct {
	ActiveConnections prometheus.Gauge
	ActiveRooms       prometheus.Gauge
	MessagesReceived  prometheus.Counter
	MessagesPublished prometheus.Counter
	AcksSent          prometheus.Counter
	FanoutDeliveries  prometheus.Counter
	FanoutErrors      prometheus.Counter
	FramesRejected    prometheus.Counter
	InvalidFrames     prometheus.Counter
}

// NewMetrics registers the relay metrics with reg. A nil registerer gets a
// private registry, which keeps tests isolated from the default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_connections",
			Help:      "Number of currently open client connections.",
		}),
		ActiveRooms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_rooms",
			Help:      "Number of rooms with at least one local member.",
		}),
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_received_total",
			Help:      "Inbound frames successfully parsed.",
		}),
		MessagesPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_published_total",
			Help:      "Room messages published onto the backplane.",
		}),
		AcksSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "acks_sent_total",
			Help:      "Acknowledgment replies written to clients.",
		}),
		FanoutDeliveries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fanout_deliveries_total",
			Help:      "Backplane payloads delivered to local connections.",
		}),
		FanoutErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fanout_errors_total",
			Help:      "Per-connection write failures during fanout.",
		}),
		FramesRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_rejected_total",
			Help:      "Frames rejected while the readiness gate was closed.",
		}),
		InvalidFrames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "invalid_frames_total",
			Help:      "Frames dropped because they could not be parsed.",
		}),
	}
}
