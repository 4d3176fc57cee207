package runtime

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks connector activity: publishes by message type, fan-out
// failures, and inbound frame handling.
type Metrics struct {
	mu         sync.Mutex
	registerer prometheus.Registerer
	registered bool

	publishedTotal     *prometheus.CounterVec
	publishErrorsTotal *prometheus.CounterVec
	fanoutErrorsTotal  prometheus.Counter
	receivedTotal      prometheus.Counter
	malformedTotal     prometheus.Counter
	connectionState    prometheus.Gauge
}

func newConnectorCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hivewire",
			Subsystem: "connector",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func newConnectorCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hivewire",
			Subsystem: "connector",
			Name:      name,
			Help:      help,
		},
	)
}

// NewMetrics creates a new connector metrics collector.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		registerer:         registerer,
		publishedTotal:     newConnectorCounterVec("published_total", "Total number of messages published to the broker", []string{"type"}),
		publishErrorsTotal: newConnectorCounterVec("publish_errors_total", "Total number of failed publish attempts", []string{"type"}),
		fanoutErrorsTotal:  newConnectorCounter("fanout_node_errors_total", "Total number of per-node failures during direct request fan-out"),
		receivedTotal:      newConnectorCounter("received_total", "Total number of well-formed messages received"),
		malformedTotal:     newConnectorCounter("malformed_frames_total", "Total number of inbound frames discarded as malformed"),
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hivewire",
			Subsystem: "connector",
			Name:      "connection_state",
			Help:      "Connection lifecycle state (0 disconnected, 1 connecting, 2 connected)",
		}),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.publishedTotal,
		m.publishErrorsTotal,
		m.fanoutErrorsTotal,
		m.receivedTotal,
		m.malformedTotal,
		m.connectionState,
	}
	for _, collector := range collectors {
		if err := m.registerer.Register(collector); err != nil {
			return err
		}
	}
	m.registered = true
	return nil
}

// Published records a successful publish of the given message type.
func (m *Metrics) Published(mtype string) {
	m.publishedTotal.WithLabelValues(mtype).Inc()
}

// PublishError records a failed publish of the given message type.
func (m *Metrics) PublishError(mtype string) {
	m.publishErrorsTotal.WithLabelValues(mtype).Inc()
}

// FanoutNodeError records one node's failure within a fan-out.
func (m *Metrics) FanoutNodeError() {
	m.fanoutErrorsTotal.Inc()
}

// Received records one well-formed inbound message.
func (m *Metrics) Received() {
	m.receivedTotal.Inc()
}

// MalformedFrame records one discarded inbound frame.
func (m *Metrics) MalformedFrame() {
	m.malformedTotal.Inc()
}

// ConnectionState records the current lifecycle state.
func (m *Metrics) ConnectionState(state ConnState) {
	m.connectionState.Set(float64(state))
}
