package voxel

import (
	"fmt"
	"math"
)

// Dims is the size of a voxel lattice along X, Y and Z.
type Dims struct {
	X, Y, Z int
}

// Len returns the number of cells in the lattice.
func (d Dims) Len() int {
	if d.X <= 0 || d.Y <= 0 || d.Z <= 0 {
		return 0
	}
	return d.X * d.Y * d.Z
}

// Valid reports whether all extents are non-negative.
func (d Dims) Valid() bool {
	return d.X >= 0 && d.Y >= 0 && d.Z >= 0
}

// Contains reports whether c lies inside the lattice.
func (d Dims) Contains(c Coord) bool {
	return c.X >= 0 && c.X < d.X && c.Y >= 0 && c.Y < d.Y && c.Z >= 0 && c.Z < d.Z
}

// Index maps a coordinate to its row-major (X outermost, Z innermost)
// linear index. The caller must ensure Contains(c).
func (d Dims) Index(c Coord) int {
	return (c.X*d.Y+c.Y)*d.Z + c.Z
}

// Coord is the inverse of Index.
func (d Dims) Coord(i int) Coord {
	z := i % d.Z
	i /= d.Z
	return Coord{X: i / d.Y, Y: i % d.Y, Z: z}
}

func (d Dims) String() string {
	return fmt.Sprintf("%dx%dx%d", d.X, d.Y, d.Z)
}

// Coord is an integer lattice coordinate.
type Coord struct {
	X, Y, Z int
}

// Add returns c offset by o.
func (c Coord) Add(o Coord) Coord {
	return Coord{X: c.X + o.X, Y: c.Y + o.Y, Z: c.Z + o.Z}
}

// FaceOffsets are the six axis-aligned (face-adjacent) neighbour offsets.
var FaceOffsets = [6]Coord{
	{-1, 0, 0}, {0, -1, 0}, {0, 0, -1},
	{1, 0, 0}, {0, 1, 0}, {0, 0, 1},
}

// ScalarGrid is a dense float64 field over a lattice, stored row-major.
type ScalarGrid struct {
	Dims Dims
	Data []float64
}

// NewScalarGrid allocates a zeroed grid.
func NewScalarGrid(d Dims) *ScalarGrid {
	return &ScalarGrid{Dims: d, Data: make([]float64, d.Len())}
}

// NewFilledScalarGrid allocates a grid with every cell set to v.
func NewFilledScalarGrid(d Dims, v float64) *ScalarGrid {
	g := NewScalarGrid(d)
	g.Fill(v)
	return g
}

// At returns the value at c.
func (g *ScalarGrid) At(c Coord) float64 {
	return g.Data[g.Dims.Index(c)]
}

// Set writes v at c.
func (g *ScalarGrid) Set(c Coord, v float64) {
	g.Data[g.Dims.Index(c)] = v
}

// Fill sets every cell to v.
func (g *ScalarGrid) Fill(v float64) {
	for i := range g.Data {
		g.Data[i] = v
	}
}

// Clone returns a deep copy.
func (g *ScalarGrid) Clone() *ScalarGrid {
	out := &ScalarGrid{Dims: g.Dims, Data: make([]float64, len(g.Data))}
	copy(out.Data, g.Data)
	return out
}

// Equal reports whether both grids have the same shape and values.
// NaN cells compare equal to NaN cells.
func (g *ScalarGrid) Equal(o *ScalarGrid) bool {
	if g == nil || o == nil {
		return g == o
	}
	return g.Dims == o.Dims && sameValues(g.Data, o.Data)
}

// FeatureGrid is a dense per-voxel feature vector field. Channels values
// are stored contiguously for each cell.
type FeatureGrid struct {
	Dims     Dims
	Channels int
	Data     []float64
}

// NewFeatureGrid allocates a zeroed feature grid.
func NewFeatureGrid(d Dims, channels int) *FeatureGrid {
	return &FeatureGrid{Dims: d, Channels: channels, Data: make([]float64, d.Len()*channels)}
}

// Feature returns the feature vector of the cell with linear index i.
// The returned slice aliases the grid storage.
func (g *FeatureGrid) Feature(i int) []float64 {
	return g.Data[i*g.Channels : (i+1)*g.Channels]
}

// At returns the feature vector at c, aliasing the grid storage.
func (g *FeatureGrid) At(c Coord) []float64 {
	return g.Feature(g.Dims.Index(c))
}

// Map returns a copy of g with fn applied to every value.
func (g *FeatureGrid) Map(fn func(float64) float64) *FeatureGrid {
	out := &FeatureGrid{Dims: g.Dims, Channels: g.Channels, Data: make([]float64, len(g.Data))}
	for i, v := range g.Data {
		out.Data[i] = fn(v)
	}
	return out
}

// Clone returns a deep copy.
func (g *FeatureGrid) Clone() *FeatureGrid {
	return g.Map(func(v float64) float64 { return v })
}

// Equal reports whether both grids have the same shape and values.
func (g *FeatureGrid) Equal(o *FeatureGrid) bool {
	if g == nil || o == nil {
		return g == o
	}
	return g.Dims == o.Dims && g.Channels == o.Channels && sameValues(g.Data, o.Data)
}

// Sigmoid squashes v into (0, 1).
func Sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

func sameValues(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] && !(math.IsNaN(a[i]) && math.IsNaN(b[i])) {
			return false
		}
	}
	return true
}

// Model bundles the fields of a trained voxel grid: density, feature
// vectors and a single attention channel.
type Model struct {
	Density   *ScalarGrid
	Features  *FeatureGrid
	Attention *ScalarGrid
}

// NewModel allocates a zeroed model.
func NewModel(d Dims, channels int) *Model {
	return &Model{
		Density:   NewScalarGrid(d),
		Features:  NewFeatureGrid(d, channels),
		Attention: NewScalarGrid(d),
	}
}

// Dims returns the lattice size of the density field.
func (m *Model) Dims() Dims {
	return m.Density.Dims
}

// Validate checks that every field is present and shares the density
// grid's dimensions.
func (m *Model) Validate() error {
	if m == nil || m.Density == nil || m.Features == nil || m.Attention == nil {
		return fmt.Errorf("model is missing a field")
	}
	d := m.Density.Dims
	if !d.Valid() {
		return fmt.Errorf("invalid model dims %s", d)
	}
	if m.Features.Dims != d {
		return fmt.Errorf("feature dims %s do not match density dims %s", m.Features.Dims, d)
	}
	if m.Attention.Dims != d {
		return fmt.Errorf("attention dims %s do not match density dims %s", m.Attention.Dims, d)
	}
	if len(m.Density.Data) != d.Len() || len(m.Attention.Data) != d.Len() ||
		len(m.Features.Data) != d.Len()*m.Features.Channels {
		return fmt.Errorf("model storage does not match dims %s", d)
	}
	return nil
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	return &Model{
		Density:   m.Density.Clone(),
		Features:  m.Features.Clone(),
		Attention: m.Attention.Clone(),
	}
}
