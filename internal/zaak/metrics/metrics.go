package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers case transitions and follow-up dispatch.
// Methods are safe on a nil receiver.
type Metrics struct {
	Transitions  *prometheus.CounterVec
	Conflicts    prometheus.Counter
	Instructions *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zac_case_transitions_total",
			Help: "Case lifecycle operations by operation and result (ok, rejected, error)",
		}, []string{"operation", "result"}),
		Conflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "zac_case_concurrent_modifications_total",
			Help: "Case writes that lost an optimistic concurrency race",
		}),
		Instructions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zac_case_instructions_total",
			Help: "Follow-up instructions by kind and result (dispatched, failed, executed)",
		}, []string{"kind", "result"}),
	}
}

func (m *Metrics) IncrementTransition(operation, result string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) IncrementConflict() {
	if m == nil {
		return
	}
	m.Conflicts.Inc()
}

func (m *Metrics) IncrementInstruction(kind, result string) {
	if m == nil {
		return
	}
	m.Instructions.WithLabelValues(kind, result).Inc()
}
