package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/voxedit/internal/voxel"
)

// zSlice exposes one Z plane of a scalar grid as a plotter.GridXYZ with
// X along columns and Y along rows.
type zSlice struct {
	g *voxel.ScalarGrid
	z int
}

func (s zSlice) Dims() (c, r int)   { return s.g.Dims.X, s.g.Dims.Y }
func (s zSlice) X(c int) float64    { return float64(c) }
func (s zSlice) Y(r int) float64    { return float64(r) }
func (s zSlice) Z(c, r int) float64 { return s.g.At(voxel.Coord{X: c, Y: r, Z: s.z}) }

// SlicePlotter writes heatmaps of Z slices of scalar grids.
type SlicePlotter struct {
	OutputDir string
	// Stride plots every Stride-th slice; values below 1 plot every slice.
	Stride int
	// Colors is the palette size (default: 12).
	Colors int
}

// NewSlicePlotter returns a plotter writing into dir.
func NewSlicePlotter(dir string, stride int) *SlicePlotter {
	return &SlicePlotter{OutputDir: dir, Stride: stride, Colors: 12}
}

// PlotGrid writes <name>_z<NNN>.png for the selected slices of g and
// returns the number of files written.
func (sp *SlicePlotter) PlotGrid(name string, g *voxel.ScalarGrid) (int, error) {
	if g.Dims.Len() == 0 {
		return 0, fmt.Errorf("plot %s: empty grid %s", name, g.Dims)
	}
	if err := os.MkdirAll(sp.OutputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create plot dir: %w", err)
	}
	stride := sp.Stride
	if stride < 1 {
		stride = 1
	}
	lo, hi := valueRange(g.Data)

	n := 0
	for z := 0; z < g.Dims.Z; z += stride {
		path := filepath.Join(sp.OutputDir, fmt.Sprintf("%s_z%03d.png", name, z))
		if err := sp.plotSlice(path, name, g, z, lo, hi); err != nil {
			return n, fmt.Errorf("slice %d: %w", z, err)
		}
		n++
	}
	return n, nil
}

func (sp *SlicePlotter) plotSlice(path, name string, g *voxel.ScalarGrid, z int, lo, hi float64) error {
	colors := sp.Colors
	if colors < 2 {
		colors = 12
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - slice z=%d", name, z)
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	hm := plotter.NewHeatMap(zSlice{g: g, z: z}, palette.Heat(colors, 1))
	// Shared bounds keep colours comparable across slices.
	hm.Min, hm.Max = lo, hi
	p.Add(hm)

	side := vg.Length(math.Max(4, math.Min(12, float64(g.Dims.X)/4))) * vg.Inch
	return p.Save(side, side, path)
}

// valueRange returns the finite min and max of data, widened so that
// min < max always holds.
func valueRange(data []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi {
		return 0, 1
	}
	if lo == hi {
		return lo - 1, hi + 1
	}
	return lo, hi
}
