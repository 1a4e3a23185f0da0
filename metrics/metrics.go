// Package metrics provides Prometheus metrics for the clocksim router.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reason label values
const (
	DropQuorumNotMet = "quorum_not_met"
	DropInvalidType  = "invalid_type"
	DropNoTarget     = "no_target"
)

// Metrics holds all Prometheus metrics for the router.
type Metrics struct {
	// Message metrics
	MessagesReceived prometheus.Counter
	MessagesRouted   *prometheus.CounterVec
	MessagesDropped  *prometheus.CounterVec

	// Connection metrics
	PeersConnected prometheus.Gauge
	PeersAccepted  prometheus.Counter
	FramesInvalid  prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates a new Metrics instance with the given namespace.
// Each instance carries its own registry so multiple routers can
// coexist in one process.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received from peers",
		}),
		MessagesRouted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_routed_total",
			Help:      "Total number of messages routed, by message type",
		}, []string{"type"}),
		MessagesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Total number of messages dropped, by reason",
		}, []string{"reason"}),
		PeersConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peers_connected",
			Help:      "Number of currently connected peers",
		}),
		PeersAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peers_accepted_total",
			Help:      "Total number of accepted peer connections",
		}),
		FramesInvalid: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_invalid_total",
			Help:      "Total number of malformed frames read from peers",
		}),
		registry: registry,
	}
}

// Handler returns an HTTP handler exposing this instance's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
