// file: websocket/metrics.go
package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	reasonSlowConsumer = "slow_consumer"
	reasonMalformed    = "malformed"
)

// Metrics holds the relay's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	connections   prometheus.Gauge
	framesRelayed prometheus.Counter
	framesDropped *prometheus.CounterVec
}

// NewMetrics creates the relay collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shareform",
			Subsystem: "relay",
			Name:      "connections",
			Help:      "Number of peers attached to the relay.",
		}),
		framesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shareform",
			Subsystem: "relay",
			Name:      "frames_relayed_total",
			Help:      "Frames delivered to a peer's send buffer.",
		}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shareform",
			Subsystem: "relay",
			Name:      "frames_dropped_total",
			Help:      "Frames the relay did not deliver, by reason.",
		}, []string{"reason"}),
	}

	for _, c := range []prometheus.Collector{m.connections, m.framesRelayed, m.framesDropped} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) setConnections(n int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(n))
}

func (m *Metrics) relayed() {
	if m == nil {
		return
	}
	m.framesRelayed.Inc()
}

func (m *Metrics) dropped(reason string) {
	if m == nil {
		return
	}
	m.framesDropped.WithLabelValues(reason).Inc()
}
