package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for configuration migration.
// Methods are safe on a nil receiver.
type Metrics struct {
	Migrations               *prometheus.CounterVec
	DroppedCompletionReasons prometheus.Counter
	MigrationDuration        prometheus.Histogram
	ReconcileRuns            *prometheus.CounterVec
}

// New registers the configuration metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the configuration metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Migrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zac_configuration_migrations_total",
			Help: "Version-published notifications handled, by outcome (skipped_concept, revalidated, placeholder, migrated)",
		}, []string{"outcome"}),
		DroppedCompletionReasons: f.NewCounter(prometheus.CounterOpts{
			Name: "zac_configuration_dangling_result_types_total",
			Help: "Completion reasons dropped because their result type no longer exists",
		}),
		MigrationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "zac_configuration_migration_duration_seconds",
			Help:    "Duration of a configuration migration transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ReconcileRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zac_configuration_reconcile_runs_total",
			Help: "Reconcile sweeps by result (ok, error)",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementMigration(outcome string) {
	if m == nil {
		return
	}
	m.Migrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementDroppedCompletionReason() {
	if m == nil {
		return
	}
	m.DroppedCompletionReasons.Inc()
}

// ObserveMigration records the duration of a migration started at start.
func (m *Metrics) ObserveMigration(start time.Time) {
	if m == nil {
		return
	}
	m.MigrationDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementReconcile(result string) {
	if m == nil {
		return
	}
	m.ReconcileRuns.WithLabelValues(result).Inc()
}
