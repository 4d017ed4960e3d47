// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common grid fixtures and assertion helpers to
// reduce code duplication across test files.
package testutil

import (
	"math/rand"
	"testing"

	"github.com/banshee-data/voxedit/internal/voxel"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Cube returns an n*n*n lattice size.
func Cube(n int) voxel.Dims {
	return voxel.Dims{X: n, Y: n, Z: n}
}

// FilledGrid returns a scalar grid with every cell set to v.
func FilledGrid(d voxel.Dims, v float64) *voxel.ScalarGrid {
	return voxel.NewFilledScalarGrid(d, v)
}

// UniformFeatures returns a feature grid whose every channel of every cell
// is v.
func UniformFeatures(d voxel.Dims, channels int, v float64) *voxel.FeatureGrid {
	g := voxel.NewFeatureGrid(d, channels)
	for i := range g.Data {
		g.Data[i] = v
	}
	return g
}

// RandomGrid returns a grid of uniform values in [lo, hi) drawn from seed.
func RandomGrid(d voxel.Dims, seed int64, lo, hi float64) *voxel.ScalarGrid {
	rng := rand.New(rand.NewSource(seed))
	g := voxel.NewScalarGrid(d)
	for i := range g.Data {
		g.Data[i] = lo + rng.Float64()*(hi-lo)
	}
	return g
}

// RandomFeatures returns a feature grid of uniform values in [0, 1).
func RandomFeatures(d voxel.Dims, channels int, seed int64) *voxel.FeatureGrid {
	rng := rand.New(rand.NewSource(seed))
	g := voxel.NewFeatureGrid(d, channels)
	for i := range g.Data {
		g.Data[i] = rng.Float64()
	}
	return g
}

// ModelPair returns an edit and an object model over the same solid
// geometry. The edit model attends to cells with X below half the lattice,
// the object model to the rest. Features increase with X so the affinity
// between halves is weakest at the boundary.
func ModelPair(d voxel.Dims, channels int) (edit, object *voxel.Model) {
	edit = voxel.NewModel(d, channels)
	edit.Density.Fill(1)
	for i := 0; i < d.Len(); i++ {
		c := d.Coord(i)
		f := edit.Features.Feature(i)
		for ch := range f {
			if c.X < d.X/2 {
				f[ch] = -2
			} else {
				f[ch] = 2
			}
		}
	}

	object = edit.Clone()
	for i := 0; i < d.Len(); i++ {
		if d.Coord(i).X < d.X/2 {
			edit.Attention.Data[i] = 4
			object.Attention.Data[i] = -4
		} else {
			edit.Attention.Data[i] = -4
			object.Attention.Data[i] = 4
		}
	}
	return edit, object
}
