package voxel

import "math"

// DilateMax returns the 3x3x3 max filter of g. Cells outside the lattice
// do not contribute and NaN cells are ignored, so a neighbourhood made only
// of NaN yields -Inf. The filter is applied as three separable passes.
func DilateMax(g *ScalarGrid) *ScalarGrid {
	d := g.Dims
	src := make([]float64, len(g.Data))
	for i, v := range g.Data {
		if math.IsNaN(v) {
			v = math.Inf(-1)
		}
		src[i] = v
	}
	if d.Len() == 0 {
		return &ScalarGrid{Dims: d, Data: src}
	}
	dst := make([]float64, len(src))

	maxPass(src, dst, d.X, d.Y*d.Z)
	maxPass(dst, src, d.Y, d.Z)
	maxPass(src, dst, d.Z, 1)

	return &ScalarGrid{Dims: d, Data: dst}
}

// maxPass takes the running max of width 3 along one axis of extent n
// whose neighbouring cells are stride apart.
func maxPass(src, dst []float64, n, stride int) {
	for i, v := range src {
		pos := (i / stride) % n
		if pos > 0 && src[i-stride] > v {
			v = src[i-stride]
		}
		if pos < n-1 && src[i+stride] > v {
			v = src[i+stride]
		}
		dst[i] = v
	}
}

// ActiveSet is the bijection between active voxels and dense 0-based node
// indices. Nodes are numbered in ascending linear grid index order, so the
// numbering is stable for a given density grid.
type ActiveSet struct {
	Dims   Dims
	cells  []int   // node -> linear grid index
	nodeOf []int32 // linear grid index -> node, or -1
}

// NewActiveSet marks a voxel active iff its dilated density is strictly
// positive.
func NewActiveSet(density *ScalarGrid) *ActiveSet {
	dilated := DilateMax(density)
	mask := make([]bool, len(dilated.Data))
	for i, v := range dilated.Data {
		mask[i] = v > 0
	}
	return ActiveSetFromMask(density.Dims, mask)
}

// ActiveSetFromMask builds the bijection from an explicit mask.
func ActiveSetFromMask(d Dims, mask []bool) *ActiveSet {
	a := &ActiveSet{Dims: d, nodeOf: make([]int32, len(mask))}
	for i, on := range mask {
		if !on {
			a.nodeOf[i] = -1
			continue
		}
		a.nodeOf[i] = int32(len(a.cells))
		a.cells = append(a.cells, i)
	}
	return a
}

// Len returns the number of active voxels.
func (a *ActiveSet) Len() int {
	return len(a.cells)
}

// GridIndex returns the linear grid index of node n.
func (a *ActiveSet) GridIndex(n int) int {
	return a.cells[n]
}

// Coord returns the lattice coordinate of node n.
func (a *ActiveSet) Coord(n int) Coord {
	return a.Dims.Coord(a.cells[n])
}

// Node returns the node index of c, or false when c is out of bounds or
// inactive.
func (a *ActiveSet) Node(c Coord) (int, bool) {
	if !a.Dims.Contains(c) {
		return 0, false
	}
	return a.NodeAt(a.Dims.Index(c))
}

// NodeAt returns the node index of a linear grid index.
func (a *ActiveSet) NodeAt(i int) (int, bool) {
	n := a.nodeOf[i]
	if n < 0 {
		return 0, false
	}
	return int(n), true
}

// Active reports whether the cell with linear index i is active.
func (a *ActiveSet) Active(i int) bool {
	return a.nodeOf[i] >= 0
}

// Gather returns the values of g at every active voxel, in node order.
func (a *ActiveSet) Gather(g *ScalarGrid) []float64 {
	out := make([]float64, len(a.cells))
	for n, i := range a.cells {
		out[n] = g.Data[i]
	}
	return out
}
