package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts catalog cache behaviour. Methods are safe on a nil receiver.
type Metrics struct {
	Lookups       *prometheus.CounterVec
	BackendErrors prometheus.Counter
	Invalidations prometheus.Counter
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zac_catalog_cache_lookups_total",
			Help: "Case-type cache lookups by result (hit, miss)",
		}, []string{"result"}),
		BackendErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "zac_catalog_cache_backend_errors_total",
			Help: "Cache backend failures; lookups fall through to the catalog",
		}),
		Invalidations: f.NewCounter(prometheus.CounterOpts{
			Name: "zac_catalog_cache_invalidations_total",
			Help: "Case-type cache entries invalidated",
		}),
	}
}

func (m *Metrics) IncrementHit() {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) IncrementMiss() {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) IncrementBackendError() {
	if m == nil {
		return
	}
	m.BackendErrors.Inc()
}

func (m *Metrics) IncrementInvalidation() {
	if m == nil {
		return
	}
	m.Invalidations.Inc()
}
