package persistence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	backendRemote = "remote"
	backendLocal  = "local"
)

// Metrics counts facade outcomes per operation and backend.
type Metrics struct {
	operations *prometheus.CounterVec
	fallbacks  *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. A nil reg yields working but
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizsync",
			Name:      "store_operations_total",
			Help:      "Persistence operations by backend and outcome.",
		}, []string{"op", "backend", "outcome"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizsync",
			Name:      "store_fallbacks_total",
			Help:      "Operations served by the local store after a remote failure.",
		}, []string{"op"}),
	}
}

func (m *Metrics) observe(op, backend string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, backend, outcome).Inc()
}

func (m *Metrics) fallback(op string) {
	m.fallbacks.WithLabelValues(op).Inc()
}
