package voxel

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
)

// Lattice is an implicit 26-connected undirected graph over the member
// cells of a voxel lattice. Node IDs are linear grid indices. It satisfies
// graph.Undirected without materialising any edges.
type Lattice struct {
	dims   Dims
	member []bool
	count  int
}

var _ graph.Undirected = (*Lattice)(nil)

// NewLattice returns the lattice graph over cells whose mask entry is true.
func NewLattice(d Dims, member []bool) *Lattice {
	l := &Lattice{dims: d, member: member}
	for _, on := range member {
		if on {
			l.count++
		}
	}
	return l
}

// Len returns the number of member cells.
func (l *Lattice) Len() int { return l.count }

func (l *Lattice) has(id int64) bool {
	return id >= 0 && id < int64(len(l.member)) && l.member[id]
}

// Node returns the node with the given ID if it is a member.
func (l *Lattice) Node(id int64) graph.Node {
	if !l.has(id) {
		return nil
	}
	return simple.Node(id)
}

// Nodes returns all member cells in ascending ID order.
func (l *Lattice) Nodes() graph.Nodes {
	if l.count == 0 {
		return graph.Empty
	}
	nodes := make([]graph.Node, 0, l.count)
	for i, on := range l.member {
		if on {
			nodes = append(nodes, simple.Node(i))
		}
	}
	return iterator.NewOrderedNodes(nodes)
}

// From returns the member cells in the 26-neighbourhood of id.
func (l *Lattice) From(id int64) graph.Nodes {
	if !l.has(id) {
		return graph.Empty
	}
	c := l.dims.Coord(int(id))
	var nodes []graph.Node
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				n := c.Add(Coord{X: dx, Y: dy, Z: dz})
				if !l.dims.Contains(n) {
					continue
				}
				if i := l.dims.Index(n); l.member[i] {
					nodes = append(nodes, simple.Node(i))
				}
			}
		}
	}
	if len(nodes) == 0 {
		return graph.Empty
	}
	return iterator.NewOrderedNodes(nodes)
}

// HasEdgeBetween reports whether x and y are distinct member cells whose
// coordinates differ by at most one along every axis.
func (l *Lattice) HasEdgeBetween(xid, yid int64) bool {
	if xid == yid || !l.has(xid) || !l.has(yid) {
		return false
	}
	a, b := l.dims.Coord(int(xid)), l.dims.Coord(int(yid))
	return abs(a.X-b.X) <= 1 && abs(a.Y-b.Y) <= 1 && abs(a.Z-b.Z) <= 1
}

// Edge returns the edge from u to v if one exists.
func (l *Lattice) Edge(uid, vid int64) graph.Edge {
	if !l.HasEdgeBetween(uid, vid) {
		return nil
	}
	return simple.Edge{F: simple.Node(uid), T: simple.Node(vid)}
}

// EdgeBetween returns the edge between x and y if one exists.
func (l *Lattice) EdgeBetween(xid, yid int64) graph.Edge {
	return l.Edge(xid, yid)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
