package db

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/voxedit/internal/region"
	"github.com/banshee-data/voxedit/internal/testutil"
	"github.com/banshee-data/voxedit/internal/voxel"
)

func cornerResult(t *testing.T) (*region.Result, region.Config) {
	t.Helper()
	cfg := region.DefaultConfig()
	cfg.MinNumEditVoxels = 1

	d := testutil.Cube(3)
	in := region.Inputs{
		Density:         testutil.FilledGrid(d, 1),
		Features:        testutil.UniformFeatures(d, 2, 0.5),
		EditAttention:   voxel.NewScalarGrid(d),
		ObjectAttention: voxel.NewScalarGrid(d),
	}
	in.EditAttention.Set(voxel.Coord{}, 10)
	in.ObjectAttention.Set(voxel.Coord{X: 2, Y: 2, Z: 2}, 10)

	res, err := region.ComputeEditRegion(in, cfg, nil)
	require.NoError(t, err)
	return res, cfg
}

func TestRegionRunStore_InsertGet(t *testing.T) {
	store := NewRegionRunStore(setupTestDB(t).DB)
	res, cfg := cornerResult(t)

	run, err := NewRegionRun(res, cfg)
	require.NoError(t, err)
	run.EditModel = "edit.vox"
	run.Notes = "corner"
	require.NoError(t, store.InsertRun(run))
	require.NotEmpty(t, run.RunID)
	require.NotZero(t, run.CreatedAtNs)

	got, err := store.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.Dims, got.Dims)
	assert.Equal(t, "edit.vox", got.EditModel)
	assert.Empty(t, got.ObjectModel)
	assert.Equal(t, "corner", got.Notes)
	assert.Equal(t, res.Stats.EditNodes, got.EditNodes)
	assert.Equal(t, res.Stats.ActiveNodes, got.ActiveNodes)
	assert.InDelta(t, res.Stats.Flow, got.Flow, 1e-12)
	assert.False(t, got.Fallback)
	if diff := cmp.Diff([]voxel.Coord{{}}, got.EditCoords); diff != "" {
		t.Errorf("edit coords mismatch (-want +got):\n%s", diff)
	}

	gotCfg, err := got.Config()
	require.NoError(t, err)
	assert.Equal(t, cfg, gotCfg)
}

func TestRegionRunStore_LoadSelection(t *testing.T) {
	store := NewRegionRunStore(setupTestDB(t).DB)
	res, cfg := cornerResult(t)

	run, err := NewRegionRun(res, cfg)
	require.NoError(t, err)
	require.NoError(t, store.InsertRun(run))

	sel, err := store.LoadSelection(run.RunID)
	require.NoError(t, err)
	assert.True(t, sel.Equal(res.Selection), "stored selection must match the computed one")
}

func TestRegionRunStore_EmptyRegion(t *testing.T) {
	store := NewRegionRunStore(setupTestDB(t).DB)
	cfg := region.DefaultConfig()
	d := testutil.Cube(2)
	res, err := region.ComputeEditRegion(region.Inputs{
		Density:         testutil.FilledGrid(d, 0),
		Features:        testutil.UniformFeatures(d, 1, 0),
		EditAttention:   testutil.FilledGrid(d, 0),
		ObjectAttention: testutil.FilledGrid(d, 0),
	}, cfg, nil)
	require.NoError(t, err)

	run, err := NewRegionRun(res, cfg)
	require.NoError(t, err)
	require.NoError(t, store.InsertRun(run))

	sel, err := store.LoadSelection(run.RunID)
	require.NoError(t, err)
	assert.True(t, sel.Equal(testutil.FilledGrid(d, cfg.BackgroundValue)))
}

func TestRegionRunStore_NotFound(t *testing.T) {
	store := NewRegionRunStore(setupTestDB(t).DB)

	_, err := store.GetRun("missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
	_, err = store.LoadSelection("missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
	assert.True(t, errors.Is(store.DeleteRun("missing"), ErrRunNotFound))
}

func TestRegionRunStore_ListAndDelete(t *testing.T) {
	store := NewRegionRunStore(setupTestDB(t).DB)
	res, cfg := cornerResult(t)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := NewRegionRun(res, cfg)
		require.NoError(t, err)
		run.CreatedAtNs = int64(1000 + i)
		require.NoError(t, store.InsertRun(run))
		ids = append(ids, run.RunID)
	}

	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].RunID, "newest first")
	assert.Nil(t, runs[0].EditCoords)

	runs, err = store.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	require.NoError(t, store.DeleteRun(ids[1]))
	runs, err = store.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestCoordsRoundTrip(t *testing.T) {
	coords := []voxel.Coord{{X: 1, Y: 2, Z: 3}, {X: 40, Y: 0, Z: 7}}
	blob, err := encodeCoords(coords)
	require.NoError(t, err)
	got, err := decodeCoords(blob)
	require.NoError(t, err)
	assert.Equal(t, coords, got)

	_, err = decodeCoords([]byte("junk"))
	assert.Error(t, err)
}
