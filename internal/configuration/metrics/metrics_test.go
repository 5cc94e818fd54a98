package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementMigration("migrated")
		m.IncrementDroppedCompletionReason()
		m.ObserveMigration(time.Now())
		m.IncrementReconcile("ok")
	})
}

func TestMetrics_Counts(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())
	m.IncrementMigration("migrated")
	m.IncrementMigration("migrated")
	m.IncrementDroppedCompletionReason()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Migrations.WithLabelValues("migrated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedCompletionReasons))
}
