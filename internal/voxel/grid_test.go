package voxel

import (
	"math"
	"testing"
)

func TestDims_IndexCoordRoundTrip(t *testing.T) {
	d := Dims{X: 3, Y: 4, Z: 5}
	if d.Len() != 60 {
		t.Fatalf("Len() = %d, want 60", d.Len())
	}
	seen := make(map[int]bool, d.Len())
	for x := 0; x < d.X; x++ {
		for y := 0; y < d.Y; y++ {
			for z := 0; z < d.Z; z++ {
				c := Coord{X: x, Y: y, Z: z}
				i := d.Index(c)
				if i < 0 || i >= d.Len() {
					t.Fatalf("Index(%v) = %d out of range", c, i)
				}
				if seen[i] {
					t.Fatalf("Index(%v) = %d collides", c, i)
				}
				seen[i] = true
				if got := d.Coord(i); got != c {
					t.Fatalf("Coord(Index(%v)) = %v", c, got)
				}
			}
		}
	}
}

func TestDims_Contains(t *testing.T) {
	d := Dims{X: 2, Y: 2, Z: 2}
	tests := []struct {
		c    Coord
		want bool
	}{
		{Coord{}, true},
		{Coord{X: 1, Y: 1, Z: 1}, true},
		{Coord{X: -1}, false},
		{Coord{Z: 2}, false},
	}
	for _, tt := range tests {
		if got := d.Contains(tt.c); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.c, got, tt.want)
		}
	}
	if (Dims{X: 0, Y: 3, Z: 3}).Len() != 0 {
		t.Error("zero extent should have no cells")
	}
}

func TestScalarGrid_EqualNaN(t *testing.T) {
	d := Dims{X: 1, Y: 1, Z: 2}
	a := &ScalarGrid{Dims: d, Data: []float64{math.NaN(), 1}}
	b := a.Clone()
	if !a.Equal(b) {
		t.Error("NaN cells should compare equal")
	}
	b.Data[1] = 2
	if a.Equal(b) {
		t.Error("different values compared equal")
	}
}

func TestFeatureGrid_FeatureAliases(t *testing.T) {
	g := NewFeatureGrid(Dims{X: 2, Y: 1, Z: 1}, 3)
	f := g.At(Coord{X: 1})
	f[2] = 7
	if g.Data[5] != 7 {
		t.Fatalf("Feature should alias storage, Data = %v", g.Data)
	}
	mapped := g.Map(func(v float64) float64 { return v * 2 })
	if mapped.Data[5] != 14 || g.Data[5] != 7 {
		t.Fatal("Map must copy")
	}
}

func TestModel_Validate(t *testing.T) {
	d := Dims{X: 2, Y: 2, Z: 2}
	m := NewModel(d, 4)
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	bad := m.Clone()
	bad.Attention = NewScalarGrid(Dims{X: 2, Y: 2, Z: 3})
	if err := bad.Validate(); err == nil {
		t.Error("expected attention dims mismatch error")
	}

	bad = m.Clone()
	bad.Features.Data = bad.Features.Data[:3]
	if err := bad.Validate(); err == nil {
		t.Error("expected storage length error")
	}

	var nilModel *Model
	if err := nilModel.Validate(); err == nil {
		t.Error("expected error for nil model")
	}
}
