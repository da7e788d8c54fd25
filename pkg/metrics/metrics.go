package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for session resolution.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	BoundedCalls    *prometheus.CounterVec
	BoundedLatency  *prometheus.HistogramVec
	RoleResolutions *prometheus.CounterVec
	ContentLoads    *prometheus.CounterVec
	Registrations   *prometheus.CounterVec
}

// New registers all collectors on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BoundedCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bantay_bounded_calls_total",
			Help: "Remote calls made under a time bound, labeled by operation and outcome",
		}, []string{"op", "outcome"}),
		BoundedLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bantay_bounded_call_seconds",
			Help:    "Time until a bounded remote call settled",
			Buckets: []float64{.01, .05, .1, .25, .5, .8, 1, 2, 3, 5},
		}, []string{"op"}),
		RoleResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bantay_role_resolutions_total",
			Help: "Resolved access roles, labeled by where the role came from",
		}, []string{"source"}),
		ContentLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bantay_content_loads_total",
			Help: "Content list loads, labeled by how they were served",
		}, []string{"result"}),
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bantay_registrations_total",
			Help: "Registrations, labeled by the outcome of the remote profile write",
		}, []string{"remote"}),
	}
}

func (m *Metrics) ObserveBoundedCall(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BoundedCalls.WithLabelValues(op, outcome).Inc()
	m.BoundedLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRoleResolution(source string) {
	if m == nil {
		return
	}
	m.RoleResolutions.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveContentLoad(result string) {
	if m == nil {
		return
	}
	m.ContentLoads.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRegistration(remote string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(remote).Inc()
}
