package hierarchy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conceptchart_hierarchy_builds_total",
		Help: "Hierarchy builds by mode (tree or fallback)",
	}, []string{"mode"})

	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "conceptchart_hierarchy_build_duration_seconds",
		Help:    "Time to flatten and aggregate a hierarchy",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1},
	})

	buildNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "conceptchart_hierarchy_nodes",
		Help:    "Flat tree nodes produced per build",
		Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
	})

	cyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conceptchart_hierarchy_cycles_total",
		Help: "Parent edges cut because they closed a cycle",
	})

	danglingParentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conceptchart_hierarchy_dangling_parents_total",
		Help: "Parent references without a record in the input",
	})
)
