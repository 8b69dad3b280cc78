package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Rule engine metrics
	RuleEvaluationsTotal *prometheus.CounterVec
	RuleDuration         *prometheus.HistogramVec
	BreakingChangesTotal *prometheus.CounterVec

	// Checker metrics
	ChecksTotal    *prometheus.CounterVec
	CheckDuration  *prometheus.HistogramVec
	CacheHitsTotal *prometheus.CounterVec

	// Path calculator metrics
	PathCalculationsTotal *prometheus.CounterVec
	GraphBuildsTotal      *prometheus.CounterVec

	// Migration metrics
	MigrationRunsTotal *prometheus.CounterVec
	HookFailuresTotal  *prometheus.CounterVec
	MigrationDuration  *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		RuleEvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lineage_rule_evaluations_total",
				Help: "Total number of compatibility rule evaluations",
			},
			[]string{"rule", "status"},
		),
		RuleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lineage_rule_duration_seconds",
				Help:    "Compatibility rule evaluation duration in seconds",
				Buckets: []float64{.00001, .0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"rule"},
		),
		BreakingChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lineage_breaking_changes_total",
				Help: "Total number of breaking changes detected",
			},
			[]string{"change_type", "impact"},
		),

		ChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lineage_compatibility_checks_total",
				Help: "Total number of compatibility checks",
			},
			[]string{"entity_type", "level"},
		),
		CheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lineage_compatibility_check_duration_seconds",
				Help:    "Compatibility check duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"entity_type"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lineage_cache_requests_total",
				Help: "Total number of result cache lookups",
			},
			[]string{"cache", "result"},
		),

		PathCalculationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lineage_path_calculations_total",
				Help: "Total number of migration path calculations",
			},
			[]string{"entity_type", "found"},
		),
		GraphBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lineage_graph_cache_builds_total",
				Help: "Total number of version graph builds",
			},
			[]string{"entity_type"},
		),

		MigrationRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lineage_migration_runs_total",
				Help: "Total number of migration runs",
			},
			[]string{"entity_type", "status"},
		),
		HookFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lineage_hook_failures_total",
				Help: "Total number of migration hook failures",
			},
			[]string{"hook", "phase"},
		),
		MigrationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lineage_migration_duration_seconds",
				Help:    "Migration run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"entity_type"},
		),
	}

	registry.MustRegister(
		m.RuleEvaluationsTotal,
		m.RuleDuration,
		m.BreakingChangesTotal,
		m.ChecksTotal,
		m.CheckDuration,
		m.CacheHitsTotal,
		m.PathCalculationsTotal,
		m.GraphBuildsTotal,
		m.MigrationRunsTotal,
		m.HookFailuresTotal,
		m.MigrationDuration,
	)

	return m
}

// RecordRuleEvaluation records one rule run
func (m *Metrics) RecordRuleEvaluation(rule, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RuleEvaluationsTotal.WithLabelValues(rule, status).Inc()
	m.RuleDuration.WithLabelValues(rule).Observe(duration.Seconds())
}

// RecordBreakingChange records one detected breaking change
func (m *Metrics) RecordBreakingChange(changeType, impact string) {
	if m == nil {
		return
	}
	m.BreakingChangesTotal.WithLabelValues(changeType, impact).Inc()
}

// RecordCheck records one facade compatibility check
func (m *Metrics) RecordCheck(entityType, level string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ChecksTotal.WithLabelValues(entityType, level).Inc()
	m.CheckDuration.WithLabelValues(entityType).Observe(duration.Seconds())
}

// RecordCacheLookup records a result cache hit or miss
func (m *Metrics) RecordCacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheHitsTotal.WithLabelValues(cache, result).Inc()
}

// RecordPathCalculation records one path calculation
func (m *Metrics) RecordPathCalculation(entityType string, found bool) {
	if m == nil {
		return
	}
	label := "false"
	if found {
		label = "true"
	}
	m.PathCalculationsTotal.WithLabelValues(entityType, label).Inc()
}

// RecordGraphBuild records one version graph build
func (m *Metrics) RecordGraphBuild(entityType string) {
	if m == nil {
		return
	}
	m.GraphBuildsTotal.WithLabelValues(entityType).Inc()
}

// RecordMigration records one migration run
func (m *Metrics) RecordMigration(entityType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.MigrationRunsTotal.WithLabelValues(entityType, status).Inc()
	m.MigrationDuration.WithLabelValues(entityType).Observe(duration.Seconds())
}

// RecordHookFailure records one hook failure
func (m *Metrics) RecordHookFailure(hook, phase string) {
	if m == nil {
		return
	}
	m.HookFailuresTotal.WithLabelValues(hook, phase).Inc()
}
