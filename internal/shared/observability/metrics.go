package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ValidatorDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cctx_validator_seconds",
		Help:    "Time spent running a single validator.",
		Buckets: prometheus.DefBuckets,
	}, []string{"validator"})

	FindingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cctx_findings_total",
		Help: "Total validation findings emitted, by severity.",
	}, []string{"validator", "severity"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cctx_graph_nodes_total",
		Help: "Total number of systems in the dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cctx_graph_edges_total",
		Help: "Total number of dependency edges in the graph.",
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cctx_validation_runs_total",
		Help: "Total validation runs, by resulting status.",
	}, []string{"status"})

	FixesAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cctx_fixes_applied_total",
		Help: "Total fixes applied, by fix id and outcome.",
	}, []string{"fix", "outcome"})

	GitLookupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cctx_git_lookups_total",
		Help: "Total git metadata lookups issued by the freshness checker.",
	})
)
