// Package metrics exposes Prometheus collectors for segmentation runs.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/banshee-data/voxedit/internal/region"
)

// Collectors are registered on the default registry by promauto.
var (
	// RunsTotal counts completed runs by outcome: "ok", "fallback",
	// "degenerate" or "empty".
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voxedit_region_runs_total",
			Help: "Total number of edit-region segmentation runs",
		},
		[]string{"outcome"},
	)

	// StageDuration measures each pipeline stage.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "voxedit_region_stage_duration_seconds",
			Help: "Duration of segmentation stages in seconds",
			// Small test grids finish in microseconds, full scenes in seconds.
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	// Nodes tracks the node counts of the most recent run.
	Nodes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "voxedit_region_nodes",
			Help: "Active, seed and labelled node counts of the last run",
		},
		[]string{"kind"},
	)

	// Flow is the max-flow value of the most recent run.
	Flow = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "voxedit_region_flow",
			Help: "Max-flow value of the last run",
		},
	)

	// SanitizedEdges counts affinities replaced because they were not finite.
	SanitizedEdges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voxedit_region_sanitized_edges_total",
			Help: "Total number of non-finite affinities replaced with zero",
		},
	)

	// ComponentCellsRestored counts density cells restored by component
	// cleanup.
	ComponentCellsRestored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voxedit_component_cells_restored_total",
			Help: "Total number of density cells restored outside kept components",
		},
	)
)

// Outcome classifies a run for RunsTotal.
func Outcome(s region.Stats) string {
	switch {
	case s.ActiveNodes == 0:
		return "empty"
	case s.Degenerate:
		return "degenerate"
	case s.Fallback:
		return "fallback"
	}
	return "ok"
}

// ObserveRun records the statistics of one run.
func ObserveRun(s region.Stats) {
	RunsTotal.WithLabelValues(Outcome(s)).Inc()

	StageDuration.WithLabelValues("seeds").Observe(s.SeedDuration.Seconds())
	StageDuration.WithLabelValues("graph").Observe(s.GraphDuration.Seconds())
	StageDuration.WithLabelValues("solve").Observe(s.SolveDuration.Seconds())
	StageDuration.WithLabelValues("total").Observe(s.TotalDuration.Seconds())

	Nodes.WithLabelValues("active").Set(float64(s.ActiveNodes))
	Nodes.WithLabelValues("edit_seed").Set(float64(s.EditSeeds))
	Nodes.WithLabelValues("object_seed").Set(float64(s.ObjectSeeds))
	Nodes.WithLabelValues("edit").Set(float64(s.EditNodes))
	Nodes.WithLabelValues("object").Set(float64(s.ObjectNodes))
	Flow.Set(s.Flow)
	SanitizedEdges.Add(float64(s.Sanitized))
}

// WriteTextfile writes every registered metric to path in the text
// exposition format, for collection by a node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
