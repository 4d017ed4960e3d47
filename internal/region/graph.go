package region

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/voxedit/internal/voxel"
)

// Edge is an undirected edge whose capacity applies in both directions.
type Edge struct {
	U, V int32
	Cap  float64
}

// Graph is the affinity graph handed to the min-cut solver: one node per
// active voxel, one edge per face-adjacent active pair with at least one
// occupied endpoint, and per-node
// terminal capacities towards the edit source and the object sink.
type Graph struct {
	NumNodes int
	Edges    []Edge
	Source   []float64 // capacity from the edit source to each node
	Sink     []float64 // capacity from each node to the object sink

	// Infinity is the finite stand-in for an unbounded terminal
	// capacity. It exceeds the sum of all edge capacities, so no cut
	// ever severs a seed from its terminal.
	Infinity float64

	// Sanitized counts edges whose affinity was not finite and was
	// replaced with zero.
	Sanitized int
}

// Affinity returns K * exp(-||a-b|| / sigma). The second result is false
// when the distance or weight is not finite, in which case the weight is 0.
func Affinity(a, b []float64, k, sigma float64) (float64, bool) {
	d := floats.Distance(a, b, 2)
	w := k * math.Exp(-d/sigma)
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return 0, false
	}
	return w, true
}

// BuildGraph constructs the affinity graph over the active voxels.
//
// Every active voxel visits its six face neighbours, and an edge is added
// only towards the neighbour with the higher node index, so each adjacent
// pair yields exactly one edge. A pair is linked only when at least one of
// its voxels has positive density: two empty voxels of the dilation shell
// are never joined, so objects separated by empty space stay apart. Edit
// seeds are bound to the source and object seeds to the sink with
// capacity Infinity.
func BuildGraph(active *voxel.ActiveSet, density *voxel.ScalarGrid, features *voxel.FeatureGrid, seeds Seeds, k, sigma float64) *Graph {
	n := active.Len()
	g := &Graph{
		NumNodes: n,
		Source:   make([]float64, n),
		Sink:     make([]float64, n),
	}
	if n == 0 {
		return g
	}
	g.Edges = make([]Edge, 0, 3*n)

	total := 0.0
	for u := 0; u < n; u++ {
		c := active.Coord(u)
		iu := active.GridIndex(u)
		occupied := density.Data[iu] > 0
		fu := features.Feature(iu)
		for _, off := range voxel.FaceOffsets {
			v, ok := active.Node(c.Add(off))
			if !ok || v <= u {
				continue
			}
			iv := active.GridIndex(v)
			if !occupied && !(density.Data[iv] > 0) {
				continue
			}
			w, finite := Affinity(fu, features.Feature(iv), k, sigma)
			if !finite {
				g.Sanitized++
			}
			g.Edges = append(g.Edges, Edge{U: int32(u), V: int32(v), Cap: w})
			total += w
		}
	}

	g.Infinity = 2*total + 1
	for _, u := range seeds.Edit {
		g.Source[u] = g.Infinity
	}
	for _, u := range seeds.Object {
		g.Sink[u] = g.Infinity
	}
	return g
}
