package voxel

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// naiveDilate is a direct 27-neighbourhood max used as a reference.
func naiveDilate(g *ScalarGrid) []float64 {
	d := g.Dims
	out := make([]float64, d.Len())
	for i := range out {
		c := d.Coord(i)
		best := math.Inf(-1)
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for dz := -1; dz <= 1; dz++ {
					n := c.Add(Coord{X: dx, Y: dy, Z: dz})
					if !d.Contains(n) {
						continue
					}
					if v := g.At(n); !math.IsNaN(v) && v > best {
						best = v
					}
				}
			}
		}
		out[i] = best
	}
	return out
}

func TestDilateMax_MatchesNaive(t *testing.T) {
	d := Dims{X: 4, Y: 5, Z: 3}
	g := NewScalarGrid(d)
	for i := range g.Data {
		g.Data[i] = math.Sin(float64(i)*1.7) * 3
	}
	g.Data[7] = math.NaN()

	got := DilateMax(g)
	if diff := cmp.Diff(naiveDilate(g), got.Data); diff != "" {
		t.Errorf("DilateMax mismatch (-naive +got):\n%s", diff)
	}
}

func TestNewActiveSet_SinglePositiveVoxel(t *testing.T) {
	d := Dims{X: 5, Y: 5, Z: 5}
	density := NewFilledScalarGrid(d, -1)
	density.Set(Coord{X: 2, Y: 2, Z: 2}, 0.5)

	a := NewActiveSet(density)
	if a.Len() != 27 {
		t.Fatalf("Len() = %d, want 27 (3x3x3 neighbourhood)", a.Len())
	}
	for n := 0; n < a.Len(); n++ {
		c := a.Coord(n)
		if c.X < 1 || c.X > 3 || c.Y < 1 || c.Y > 3 || c.Z < 1 || c.Z > 3 {
			t.Errorf("node %d at %v lies outside the dilated voxel", n, c)
		}
	}
}

func TestNewActiveSet_ZeroDensityInactive(t *testing.T) {
	a := NewActiveSet(NewScalarGrid(Dims{X: 3, Y: 3, Z: 3}))
	if a.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", a.Len())
	}
	if _, ok := a.Node(Coord{X: 1, Y: 1, Z: 1}); ok {
		t.Error("zero-density voxel must be inactive")
	}
}

func TestActiveSet_Bijection(t *testing.T) {
	d := Dims{X: 3, Y: 2, Z: 4}
	mask := make([]bool, d.Len())
	for i := range mask {
		mask[i] = i%3 != 0
	}
	a := ActiveSetFromMask(d, mask)

	prev := -1
	for n := 0; n < a.Len(); n++ {
		i := a.GridIndex(n)
		if i <= prev {
			t.Fatalf("nodes must be in ascending grid order: %d after %d", i, prev)
		}
		prev = i
		back, ok := a.Node(a.Coord(n))
		if !ok || back != n {
			t.Fatalf("Node(Coord(%d)) = %d, %v", n, back, ok)
		}
	}
	for i, on := range mask {
		if a.Active(i) != on {
			t.Errorf("Active(%d) = %v, want %v", i, a.Active(i), on)
		}
	}
	if _, ok := a.Node(Coord{X: -1}); ok {
		t.Error("out of bounds coordinate must not map to a node")
	}
}

func TestActiveSet_Gather(t *testing.T) {
	d := Dims{X: 1, Y: 1, Z: 4}
	a := ActiveSetFromMask(d, []bool{true, false, true, true})
	g := &ScalarGrid{Dims: d, Data: []float64{1, 2, 3, 4}}
	if diff := cmp.Diff([]float64{1, 3, 4}, a.Gather(g)); diff != "" {
		t.Errorf("Gather mismatch (-want +got):\n%s", diff)
	}
}
