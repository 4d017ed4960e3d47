package refine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/banshee-data/voxedit/internal/db"
	"github.com/banshee-data/voxedit/internal/metrics"
	"github.com/banshee-data/voxedit/internal/monitoring"
	"github.com/banshee-data/voxedit/internal/region"
	"github.com/banshee-data/voxedit/internal/report"
	"github.com/banshee-data/voxedit/internal/voxel"
)

// RunStore persists completed runs. *db.RegionRunStore satisfies it.
type RunStore interface {
	InsertRun(run *db.RegionRun) error
}

// Options names the inputs and sinks of a run. Empty sink paths are
// skipped.
type Options struct {
	EditPath      string
	ObjectPath    string
	ReferencePath string // pre-edit model for component cleanup; optional

	OutPath   string
	Precision voxel.Precision

	PlotDir     string
	PlotStride  int
	ChartPath   string
	MetricsPath string
	Notes       string
}

// Summary reports what a run produced.
type Summary struct {
	RunID         string
	Model         *voxel.Model
	Result        *region.Result
	RestoredCells int
	PlotFiles     int
}

// Runner executes refinement runs with a fixed configuration.
type Runner struct {
	Config  region.Config
	Options Options
	// Store is optional; a nil store skips persistence.
	Store RunStore
}

// NewRunner creates a Runner. The config is validated on each run.
func NewRunner(cfg region.Config, opts Options, store RunStore) *Runner {
	if opts.Precision == "" {
		opts.Precision = voxel.PrecisionFloat64
	}
	return &Runner{Config: cfg, Options: opts, Store: store}
}

// Run loads the model files named in Options and refines them.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if r.Options.EditPath == "" || r.Options.ObjectPath == "" {
		return nil, fmt.Errorf("edit and object model paths are required")
	}
	edit, err := voxel.LoadModel(r.Options.EditPath)
	if err != nil {
		return nil, fmt.Errorf("load edit model: %w", err)
	}
	object, err := voxel.LoadModel(r.Options.ObjectPath)
	if err != nil {
		return nil, fmt.Errorf("load object model: %w", err)
	}
	var reference *voxel.Model
	if r.Options.ReferencePath != "" {
		if reference, err = voxel.LoadModel(r.Options.ReferencePath); err != nil {
			return nil, fmt.Errorf("load reference model: %w", err)
		}
	}
	return r.RunModels(ctx, edit, object, reference)
}

// RunModels refines an in-memory model pair. reference may be nil, in
// which case component cleanup is skipped. ctx is checked between stages;
// the solve itself is not interruptible.
func (r *Runner) RunModels(ctx context.Context, edit, object, reference *voxel.Model) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, res, err := region.Refine(edit, object, r.Config, nil)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Model: out, Result: res}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.cleanup(sum, reference); err != nil {
		return nil, err
	}

	if r.Options.OutPath != "" {
		if err := voxel.SaveModel(r.Options.OutPath, out, r.Options.Precision); err != nil {
			return nil, fmt.Errorf("save refined model: %w", err)
		}
		monitoring.Logf("[refine] wrote %s (%s)", r.Options.OutPath, r.Options.Precision)
	}

	// Reports name the run, but it is stored only after every other sink
	// has succeeded.
	var run *db.RegionRun
	if r.Store != nil {
		if run, err = db.NewRegionRun(res, r.Config); err != nil {
			return nil, err
		}
		run.RunID = uuid.NewString()
		run.EditModel = r.Options.EditPath
		run.ObjectModel = r.Options.ObjectPath
		run.RestoredCells = sum.RestoredCells
		run.Notes = r.Options.Notes
		sum.RunID = run.RunID
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.writeReports(sum, edit, object); err != nil {
		return nil, err
	}

	metrics.ObserveRun(res.Stats)
	metrics.ComponentCellsRestored.Add(float64(sum.RestoredCells))
	if r.Options.MetricsPath != "" {
		if err := metrics.WriteTextfile(r.Options.MetricsPath); err != nil {
			return nil, err
		}
	}

	if run != nil {
		if err := r.Store.InsertRun(run); err != nil {
			return nil, err
		}
		sum.RunID = run.RunID
		monitoring.Logf("[refine] stored run %s", run.RunID)
	}

	return sum, nil
}

func (r *Runner) cleanup(sum *Summary, reference *voxel.Model) error {
	keep := r.Config.KeepComponents
	if keep <= 0 {
		return nil
	}
	if reference == nil {
		monitoring.Logf("[refine] keep_components=%d ignored without a reference model", keep)
		return nil
	}
	n, err := voxel.KeepLargestComponents(sum.Model.Density, reference.Density, keep)
	if err != nil {
		return err
	}
	sum.RestoredCells = n
	monitoring.Logf("[refine] kept %d largest components, restored %d cells", keep, n)
	return nil
}

func (r *Runner) writeReports(sum *Summary, edit, object *voxel.Model) error {
	if dir := r.Options.PlotDir; dir != "" {
		baseline, err := region.ThresholdBaseline(edit.Attention, object.Attention, r.Config)
		if err != nil {
			return err
		}
		sp := report.NewSlicePlotter(dir, r.Options.PlotStride)
		grids := []struct {
			name string
			g    *voxel.ScalarGrid
		}{
			{"selection", sum.Result.Selection},
			{"diagnostic", sum.Result.Diagnostic},
			{"baseline", baseline},
		}
		for _, g := range grids {
			n, err := sp.PlotGrid(g.name, g.g)
			if err != nil {
				return fmt.Errorf("plot %s: %w", g.name, err)
			}
			sum.PlotFiles += n
		}
		monitoring.Logf("[refine] wrote %d slice plots to %s", sum.PlotFiles, dir)
	}
	if path := r.Options.ChartPath; path != "" {
		if err := report.WriteSliceChart(path, chartTitle(r.Options.EditPath, sum.RunID), sum.Result); err != nil {
			return err
		}
	}
	return nil
}

func chartTitle(editPath, runID string) string {
	name := strings.TrimSuffix(filepath.Base(editPath), filepath.Ext(editPath))
	if editPath == "" {
		name = "edit region"
	}
	if runID != "" {
		return name + " " + runID[:min(8, len(runID))]
	}
	return name
}
