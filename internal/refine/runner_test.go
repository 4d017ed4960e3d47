package refine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/voxedit/internal/db"
	"github.com/banshee-data/voxedit/internal/monitoring"
	"github.com/banshee-data/voxedit/internal/region"
	"github.com/banshee-data/voxedit/internal/testutil"
	"github.com/banshee-data/voxedit/internal/voxel"
)

func TestMain(m *testing.M) {
	restore := monitoring.Mute()
	code := m.Run()
	restore()
	os.Exit(code)
}

var pairDims = voxel.Dims{X: 6, Y: 3, Z: 3}

func testConfig() region.Config {
	cfg := region.DefaultConfig()
	cfg.MinNumEditVoxels = 1
	return cfg
}

type memStore struct {
	runs []*db.RegionRun
}

func (s *memStore) InsertRun(run *db.RegionRun) error {
	run.RunID = "mem-run-0001"
	s.runs = append(s.runs, run)
	return nil
}

func TestRunModels_SplitsPair(t *testing.T) {
	edit, object := testutil.ModelPair(pairDims, 2)
	store := &memStore{}
	r := NewRunner(testConfig(), Options{EditPath: "scene.vox", Notes: "split"}, store)

	sum, err := r.RunModels(context.Background(), edit, object, nil)
	require.NoError(t, err)

	assert.Equal(t, 27, sum.Result.Stats.EditNodes)
	for _, c := range sum.Result.EditCoords() {
		assert.Less(t, c.X, 3)
	}
	assert.True(t, sum.Model.Attention.Equal(sum.Result.Selection))
	assert.Equal(t, 4.0, edit.Attention.At(voxel.Coord{}), "input model must not change")

	require.Len(t, store.runs, 1)
	assert.Equal(t, "mem-run-0001", sum.RunID)
	assert.Equal(t, "scene.vox", store.runs[0].EditModel)
	assert.Equal(t, "split", store.runs[0].Notes)
	assert.Equal(t, 27, store.runs[0].EditNodes)
}

func TestRunModels_Precondition(t *testing.T) {
	edit, _ := testutil.ModelPair(pairDims, 2)
	_, object := testutil.ModelPair(testutil.Cube(3), 2)
	store := &memStore{}

	_, err := NewRunner(testConfig(), Options{}, store).RunModels(context.Background(), edit, object, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, region.ErrShapeMismatch)
	assert.Empty(t, store.runs)
}

func TestRunModels_Cancelled(t *testing.T) {
	edit, object := testutil.ModelPair(pairDims, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(testConfig(), Options{}, nil).RunModels(ctx, edit, object, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunModels_ReportFailureStoresNothing(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	edit, object := testutil.ModelPair(pairDims, 2)
	store := &memStore{}
	opts := Options{ChartPath: filepath.Join(blocker, "charts", "slices.html")}

	sum, err := NewRunner(testConfig(), opts, store).RunModels(context.Background(), edit, object, nil)
	require.Error(t, err)
	assert.Nil(t, sum)
	assert.Empty(t, store.runs)
}

// splitPair returns a model pair whose density has a second blob at X=5,
// separated by an empty X=4 plane, and a reference without that blob.
func splitPair() (edit, object, reference *voxel.Model) {
	edit, object = testutil.ModelPair(pairDims, 2)
	reference = edit.Clone()
	for i := 0; i < pairDims.Len(); i++ {
		switch pairDims.Coord(i).X {
		case 4:
			edit.Density.Data[i] = 0
			object.Density.Data[i] = 0
			reference.Density.Data[i] = 0
		case 5:
			reference.Density.Data[i] = 0
		}
	}
	return edit, object, reference
}

func TestRunModels_ComponentCleanup(t *testing.T) {
	cfg := testConfig()
	cfg.KeepComponents = 1

	edit, object, reference := splitPair()
	sum, err := NewRunner(cfg, Options{}, nil).RunModels(context.Background(), edit, object, reference)
	require.NoError(t, err)
	assert.Equal(t, 9, sum.RestoredCells)
	assert.Equal(t, 0.0, sum.Model.Density.At(voxel.Coord{X: 5, Y: 1, Z: 1}))
	assert.Equal(t, 1.0, sum.Model.Density.At(voxel.Coord{X: 3, Y: 1, Z: 1}))

	edit, object, _ = splitPair()
	sum, err = NewRunner(cfg, Options{}, nil).RunModels(context.Background(), edit, object, nil)
	require.NoError(t, err)
	assert.Zero(t, sum.RestoredCells)
	assert.Equal(t, 1.0, sum.Model.Density.At(voxel.Coord{X: 5, Y: 1, Z: 1}))
}

func TestRun_Files(t *testing.T) {
	dir := t.TempDir()
	edit, object, reference := splitPair()
	paths := map[string]*voxel.Model{
		"edit.vox":      edit,
		"object.vox":    object,
		"reference.vox": reference,
	}
	for name, m := range paths {
		require.NoError(t, voxel.SaveModel(filepath.Join(dir, name), m, voxel.PrecisionFloat64))
	}

	database, err := db.NewDB(filepath.Join(dir, "voxedit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	store := db.NewRegionRunStore(database.DB)

	cfg := testConfig()
	cfg.KeepComponents = 1
	opts := Options{
		EditPath:      filepath.Join(dir, "edit.vox"),
		ObjectPath:    filepath.Join(dir, "object.vox"),
		ReferencePath: filepath.Join(dir, "reference.vox"),
		OutPath:       filepath.Join(dir, "out", "refined.vox"),
		Precision:     voxel.PrecisionFloat16,
		PlotDir:       filepath.Join(dir, "plots"),
		PlotStride:    2,
		ChartPath:     filepath.Join(dir, "chart.html"),
		MetricsPath:   filepath.Join(dir, "metrics", "voxedit.prom"),
	}
	sum, err := NewRunner(cfg, opts, store).Run(context.Background())
	require.NoError(t, err)

	out, err := voxel.LoadModel(opts.OutPath)
	require.NoError(t, err)
	// -20, -10 and 0 are exact in half precision.
	if diff := cmp.Diff(sum.Result.Selection.Data, out.Attention.Data); diff != "" {
		t.Errorf("refined attention mismatch (-want +got):\n%s", diff)
	}

	run, err := store.GetRun(sum.RunID)
	require.NoError(t, err)
	assert.Equal(t, 9, run.RestoredCells)
	assert.Equal(t, 1, run.KeepComponents)
	assert.Equal(t, opts.EditPath, run.EditModel)

	sel, err := store.LoadSelection(sum.RunID)
	require.NoError(t, err)
	assert.True(t, sel.Equal(sum.Result.Selection))

	// Three grids, Z slices 0 and 2 each.
	assert.Equal(t, 6, sum.PlotFiles)
	entries, err := os.ReadDir(opts.PlotDir)
	require.NoError(t, err)
	assert.Len(t, entries, 6)

	chart, err := os.ReadFile(opts.ChartPath)
	require.NoError(t, err)
	assert.Contains(t, string(chart), "edit "+sum.RunID[:8])

	prom, err := os.ReadFile(opts.MetricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "voxedit_region_runs_total")
	assert.Contains(t, string(prom), "voxedit_component_cells_restored_total")
}

func TestRun_MissingPaths(t *testing.T) {
	_, err := NewRunner(testConfig(), Options{EditPath: "a.vox"}, nil).Run(context.Background())
	assert.Error(t, err)

	dir := t.TempDir()
	_, err = NewRunner(testConfig(), Options{
		EditPath:   filepath.Join(dir, "missing.vox"),
		ObjectPath: filepath.Join(dir, "missing.vox"),
	}, nil).Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "load edit model"))
}

func TestChartTitle(t *testing.T) {
	tests := []struct {
		path, runID, want string
	}{
		{"/data/lego.vox", "", "lego"},
		{"", "", "edit region"},
		{"scene.vox", "0123456789abcdef", "scene 01234567"},
		{"scene.vox", "abc", "scene abc"},
	}
	for _, tt := range tests {
		if got := chartTitle(tt.path, tt.runID); got != tt.want {
			t.Errorf("chartTitle(%q, %q) = %q, want %q", tt.path, tt.runID, got, tt.want)
		}
	}
}
