// Package metrics exports relay counters to Prometheus.
//
// A nil *Metrics is valid and records nothing, so callers that do not serve
// metrics need no special casing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Connection results, used as the "result" label.
const (
	ResultClosed           = "closed"
	ResultResolutionFailed = "resolution_failed"
	ResultMarkFailed       = "mark_failed"
	ResultConnectFailed    = "connect_failed"
	ResultRelayFailed      = "relay_failed"
)

type Metrics struct {
	connections *prometheus.CounterVec
	active      prometheus.Gauge
	bytes       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		connections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "redirrelay_connections_total",
			Help: "The total number of finished connections by result",
		}, []string{"result"}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Name: "redirrelay_active_connections",
			Help: "The number of connections currently being handled",
		}),
		bytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "redirrelay_bytes_total",
			Help: "The total number of relayed bytes by direction",
		}, []string{"direction"}),
	}
}

func (m *Metrics) ConnectionStarted() {
	if m == nil {
		return
	}
	m.active.Inc()
}

func (m *Metrics) ConnectionFinished(result string) {
	if m == nil {
		return
	}
	m.active.Dec()
	m.connections.WithLabelValues(result).Inc()
}

// AddBytes records bytes copied client->upstream (sent) and
// upstream->client (received).
func (m *Metrics) AddBytes(sent, received int64) {
	if m == nil {
		return
	}
	m.bytes.WithLabelValues("sent").Add(float64(sent))
	m.bytes.WithLabelValues("received").Add(float64(received))
}

// Connections returns the finished-connections counter for result.
func (m *Metrics) Connections(result string) prometheus.Counter {
	return m.connections.WithLabelValues(result)
}
