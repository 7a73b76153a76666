package observability

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var repoBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics holds the repository and migration collectors. Each instance owns
// its registry so several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	RepoOperations    *prometheus.CounterVec
	RepoDuration      *prometheus.HistogramVec
	RepoConflicts     *prometheus.CounterVec
	RepoUnavailable   *prometheus.CounterVec
	MigrationsApplied *prometheus.CounterVec
	MigrationDuration *prometheus.HistogramVec
	SeededElements    prometheus.Counter
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = "elementstore"
	}
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RepoOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_operations_total",
			Help:      "Repository operations by backend, operation and status",
		}, []string{"backend", "operation", "status"}),
		RepoDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "repository_operation_duration_seconds",
			Help:      "Duration of repository operations",
			Buckets:   repoBuckets,
		}, []string{"backend", "operation"}),
		RepoConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_conflicts_total",
			Help:      "Writes rejected by the concurrency stamp check",
		}, []string{"backend", "operation"}),
		RepoUnavailable: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_unavailable_total",
			Help:      "Operations that failed because the store was unreachable",
		}, []string{"backend", "operation"}),
		MigrationsApplied: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_migrations_applied_total",
			Help:      "Schema migration steps applied per scope",
		}, []string{"scope"}),
		MigrationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "schema_migration_duration_seconds",
			Help:      "Duration of a full migration run per scope",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scope", "status"}),
		SeededElements: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seeded_elements_total",
			Help:      "Elements inserted by the data seeder",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRepoOperation(backend, op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.RepoOperations.WithLabelValues(backend, op, status).Inc()
	m.RepoDuration.WithLabelValues(backend, op).Observe(dur.Seconds())
}

func (m *Metrics) IncRepoConflict(backend, op string) {
	if m == nil {
		return
	}
	m.RepoConflicts.WithLabelValues(backend, op).Inc()
}

func (m *Metrics) IncRepoUnavailable(backend, op string) {
	if m == nil {
		return
	}
	m.RepoUnavailable.WithLabelValues(backend, op).Inc()
}

func (m *Metrics) ObserveMigration(scope, status string, applied int, dur time.Duration) {
	if m == nil {
		return
	}
	if scope == "" {
		scope = "host"
	}
	if applied > 0 {
		m.MigrationsApplied.WithLabelValues(scope).Add(float64(applied))
	}
	m.MigrationDuration.WithLabelValues(scope, status).Observe(dur.Seconds())
}

func (m *Metrics) AddSeeded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SeededElements.Add(float64(n))
}
