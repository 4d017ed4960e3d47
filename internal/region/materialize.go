package region

import (
	"fmt"

	"github.com/banshee-data/voxedit/internal/voxel"
)

// Materialize writes a labelling back onto the lattice.
//
// The selection grid holds SelectedValue at EDIT voxels and
// BackgroundValue everywhere else; it is the new attention field. The
// diagnostic grid additionally marks active voxels labelled OBJECT with
// UnselectedValue.
func Materialize(active *voxel.ActiveSet, labels []Label, cfg Config) (selection, diagnostic *voxel.ScalarGrid) {
	d := active.Dims
	selection = voxel.NewFilledScalarGrid(d, cfg.BackgroundValue)
	diagnostic = voxel.NewFilledScalarGrid(d, cfg.BackgroundValue)
	for n := 0; n < active.Len() && n < len(labels); n++ {
		i := active.GridIndex(n)
		if labels[n] == LabelEdit {
			selection.Data[i] = cfg.SelectedValue
			diagnostic.Data[i] = cfg.SelectedValue
			continue
		}
		diagnostic.Data[i] = cfg.UnselectedValue
	}
	return selection, diagnostic
}

// ThresholdBaseline is the simple comparison region: SelectedValue wherever
// edit attention exceeds object attention, BackgroundValue elsewhere,
// evaluated over the whole lattice.
func ThresholdBaseline(editAttn, objAttn *voxel.ScalarGrid, cfg Config) (*voxel.ScalarGrid, error) {
	if editAttn.Dims != objAttn.Dims {
		return nil, &ShapeMismatchError{Field: "object attention", Want: editAttn.Dims, Got: objAttn.Dims}
	}
	out := voxel.NewFilledScalarGrid(editAttn.Dims, cfg.BackgroundValue)
	for i := range out.Data {
		if editAttn.Data[i] > objAttn.Data[i] {
			out.Data[i] = cfg.SelectedValue
		}
	}
	return out, nil
}

// ApplySelection overwrites dst entirely with selection. Callers must not
// read dst concurrently.
func ApplySelection(dst, selection *voxel.ScalarGrid) error {
	if dst.Dims != selection.Dims {
		return fmt.Errorf("apply selection: %w", &ShapeMismatchError{Field: "output attention", Want: selection.Dims, Got: dst.Dims})
	}
	if len(dst.Data) != len(selection.Data) {
		dst.Data = make([]float64, len(selection.Data))
	}
	copy(dst.Data, selection.Data)
	return nil
}

// EditCoords returns the coordinates labelled EDIT, in node order.
func EditCoords(active *voxel.ActiveSet, labels []Label) []voxel.Coord {
	var out []voxel.Coord
	for n := 0; n < active.Len() && n < len(labels); n++ {
		if labels[n] == LabelEdit {
			out = append(out, active.Coord(n))
		}
	}
	return out
}

// SelectionFromCoords rebuilds a selection grid from stored EDIT
// coordinates. Coordinates outside d are rejected.
func SelectionFromCoords(d voxel.Dims, coords []voxel.Coord, cfg Config) (*voxel.ScalarGrid, error) {
	g := voxel.NewFilledScalarGrid(d, cfg.BackgroundValue)
	for _, c := range coords {
		if !d.Contains(c) {
			return nil, fmt.Errorf("coordinate %v outside grid %s", c, d)
		}
		g.Set(c, cfg.SelectedValue)
	}
	return g, nil
}
