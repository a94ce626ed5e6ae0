// Package metrics exposes the process-local Prometheus counters the
// listener updates: signals received by kind, and backend finalize
// duration. These are diagnostics only, never part of the wire report.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles the counters a single listener instance updates. Callers
// that don't care about metrics can use NewUnregistered, which still counts
// but never publishes to a Prometheus registry.
type Registry struct {
	SignalsReceived *prometheus.CounterVec
	FinalizeSeconds prometheus.Histogram
}

// NewRegistry creates a Registry and registers its collectors with reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		SignalsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "critpath_signals_received_total",
			Help: "Number of build signals received by kind.",
		}, []string{"kind"}),
		FinalizeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "critpath_backend_finalize_seconds",
			Help:    "Time spent in the backend's Finish call.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(r.SignalsReceived, r.FinalizeSeconds)
	}
	return r
}

// NewUnregistered creates a Registry whose counters are never published,
// for tests and for callers that don't maintain a Prometheus registry.
func NewUnregistered() *Registry {
	return NewRegistry(nil)
}

// ObserveFinalize records how long a backend's Finish call took.
func (r *Registry) ObserveFinalize(d time.Duration) {
	if r == nil || r.FinalizeSeconds == nil {
		return
	}
	r.FinalizeSeconds.Observe(d.Seconds())
}

// CountSignal increments the counter for the given signal kind.
func (r *Registry) CountSignal(kind string) {
	if r == nil || r.SignalsReceived == nil {
		return
	}
	r.SignalsReceived.WithLabelValues(kind).Inc()
}
