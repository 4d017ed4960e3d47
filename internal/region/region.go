package region

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/banshee-data/voxedit/internal/monitoring"
	"github.com/banshee-data/voxedit/internal/voxel"
)

// Inputs are the four co-registered grids of one segmentation run.
type Inputs struct {
	Density         *voxel.ScalarGrid
	Features        *voxel.FeatureGrid
	EditAttention   *voxel.ScalarGrid
	ObjectAttention *voxel.ScalarGrid
}

// CheckShapes verifies that every grid shares the density grid's
// dimensions. It returns a *ShapeMismatchError naming the first offender.
func (in Inputs) CheckShapes() error {
	if in.Density == nil || in.Features == nil || in.EditAttention == nil || in.ObjectAttention == nil {
		return fmt.Errorf("region inputs: all four grids are required")
	}
	want := in.Density.Dims
	if !want.Valid() || len(in.Density.Data) != want.Len() {
		return fmt.Errorf("region inputs: invalid density grid %s", want)
	}
	checks := []struct {
		field string
		got   voxel.Dims
	}{
		{"features", in.Features.Dims},
		{"edit attention", in.EditAttention.Dims},
		{"object attention", in.ObjectAttention.Dims},
	}
	for _, c := range checks {
		if c.got != want {
			return &ShapeMismatchError{Field: c.field, Want: want, Got: c.got}
		}
	}
	if in.Features.Channels <= 0 {
		return fmt.Errorf("region inputs: feature grid has %d channels", in.Features.Channels)
	}
	n := want.Len()
	if len(in.Features.Data) != n*in.Features.Channels ||
		len(in.EditAttention.Data) != n || len(in.ObjectAttention.Data) != n {
		return fmt.Errorf("region inputs: grid storage does not match dims %s", want)
	}
	return nil
}

// Stats summarises one run.
type Stats struct {
	GridCells   int
	ActiveNodes int
	Edges       int
	EditSeeds   int
	ObjectSeeds int
	EditNodes   int
	ObjectNodes int
	Flow        float64

	Fallback   bool
	Degenerate bool
	Conflicts  int
	Sanitized  int

	SeedDuration  time.Duration
	GraphDuration time.Duration
	SolveDuration time.Duration
	TotalDuration time.Duration
}

// EditFraction is the share of active voxels labelled EDIT, or 0 when
// nothing is active.
func (s Stats) EditFraction() float64 {
	if s.ActiveNodes == 0 {
		return 0
	}
	return float64(s.EditNodes) / float64(s.ActiveNodes)
}

// Result is everything ComputeEditRegion produced.
type Result struct {
	// Selection is the dense output: SelectedValue inside the edit
	// region, BackgroundValue elsewhere.
	Selection *voxel.ScalarGrid
	// Diagnostic also distinguishes active voxels labelled OBJECT.
	Diagnostic *voxel.ScalarGrid

	Active *voxel.ActiveSet
	Seeds  Seeds
	Cut    Cut
	Stats  Stats
}

// EditCoords returns the coordinates of the edit region.
func (r *Result) EditCoords() []voxel.Coord {
	return EditCoords(r.Active, r.Cut.Labels)
}

// ComputeEditRegion segments the active voxels of in into an edit region
// and the rest of the object.
//
// Shapes are checked before any other work. An empty active set is not an
// error and yields an all-background selection. When both seed sets come
// out empty a warning is logged and every active voxel is labelled OBJECT.
// rng drives the object seed subsample; nil uses cfg.RandomSeed.
func ComputeEditRegion(in Inputs, cfg Config, rng *rand.Rand) (*Result, error) {
	if err := in.CheckShapes(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid region config: %w", err)
	}
	began := time.Now()
	res := &Result{}
	res.Stats.GridCells = in.Density.Dims.Len()

	res.Active = voxel.NewActiveSet(in.Density)
	n := res.Active.Len()
	res.Stats.ActiveNodes = n
	if n == 0 {
		monitoring.Logf("[region] no active voxels in %s grid, returning background", in.Density.Dims)
		res.Cut = Cut{Labels: []Label{}}
		res.Selection, res.Diagnostic = Materialize(res.Active, nil, cfg)
		res.Stats.TotalDuration = time.Since(began)
		return res, nil
	}

	t := time.Now()
	res.Seeds = SelectSeeds(res.Active.Gather(in.EditAttention), res.Active.Gather(in.ObjectAttention), cfg, rng)
	res.Stats.SeedDuration = time.Since(t)
	res.Stats.EditSeeds = len(res.Seeds.Edit)
	res.Stats.ObjectSeeds = len(res.Seeds.Object)
	res.Stats.Fallback = res.Seeds.Fallback
	res.Stats.Conflicts = res.Seeds.Conflicts
	if res.Seeds.Fallback {
		monitoring.Logf("[region] primary rule below %d edit seeds, using top-k fallback (edit=%d object=%d)",
			cfg.MinNumEditVoxels, res.Stats.EditSeeds, res.Stats.ObjectSeeds)
	}
	if res.Seeds.Conflicts > 0 {
		monitoring.Logf("[region] %d voxels selected for both terminals kept as edit seeds", res.Seeds.Conflicts)
	}

	if res.Seeds.Empty() {
		monitoring.Warnf("[region] no seeds for either terminal over %d active voxels, labelling all as object", n)
		res.Stats.Degenerate = true
		res.Cut = Cut{Labels: make([]Label, n)}
	} else {
		t = time.Now()
		g := BuildGraph(res.Active, in.Density, in.Features, res.Seeds, cfg.K, cfg.Sigma)
		res.Stats.GraphDuration = time.Since(t)
		res.Stats.Edges = len(g.Edges)
		res.Stats.Sanitized = g.Sanitized
		if g.Sanitized > 0 {
			monitoring.Warnf("[region] %d non-finite affinities replaced with zero", g.Sanitized)
		}

		t = time.Now()
		res.Cut = Solve(g)
		res.Stats.SolveDuration = time.Since(t)
	}

	res.Stats.Flow = res.Cut.Flow
	res.Stats.EditNodes = res.Cut.Count(LabelEdit)
	res.Stats.ObjectNodes = n - res.Stats.EditNodes
	res.Selection, res.Diagnostic = Materialize(res.Active, res.Cut.Labels, cfg)
	res.Stats.TotalDuration = time.Since(began)

	monitoring.Logf("[region] active=%d edges=%d seeds=%d/%d edit=%d flow=%.4g in %v",
		n, res.Stats.Edges, res.Stats.EditSeeds, res.Stats.ObjectSeeds,
		res.Stats.EditNodes, res.Stats.Flow, res.Stats.TotalDuration)
	return res, nil
}
