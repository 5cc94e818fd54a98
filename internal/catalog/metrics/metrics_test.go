package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.IncrementHit()
	m.IncrementHit()
	m.IncrementMiss()
	m.IncrementBackendError()
	m.IncrementInvalidation()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Lookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackendErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invalidations))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementHit()
		m.IncrementMiss()
		m.IncrementBackendError()
		m.IncrementInvalidation()
	})
}
