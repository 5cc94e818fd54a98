package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.IncrementTransition("suspend", "ok")
	m.IncrementTransition("suspend", "ok")
	m.IncrementConflict()
	m.IncrementInstruction("shift_task_due_date", "dispatched")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("suspend", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Conflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Instructions.WithLabelValues("shift_task_due_date", "dispatched")))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementTransition("close", "ok")
		m.IncrementConflict()
		m.IncrementInstruction("persist_case", "failed")
	})
}
