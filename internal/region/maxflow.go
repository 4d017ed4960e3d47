package region

import "math"

// flowEpsilon, scaled by the largest edge capacity, is the residual
// capacity at or below which an arc counts as saturated.
const flowEpsilon = 1e-12

// Label is the segmentation class of an active voxel.
type Label uint8

const (
	LabelObject Label = iota
	LabelEdit
)

func (l Label) String() string {
	if l == LabelEdit {
		return "edit"
	}
	return "object"
}

// Cut is the solver output: one label per node and the max-flow value.
type Cut struct {
	Labels []Label
	Flow   float64
}

// Count returns the number of nodes with label l.
func (c Cut) Count(l Label) int {
	n := 0
	for _, v := range c.Labels {
		if v == l {
			n++
		}
	}
	return n
}

// Solve computes the maximum source-to-sink flow of g with Dinic's
// algorithm and labels as EDIT exactly the nodes reachable from the source
// in the final residual network. Arc order is fixed by g, so the result is
// deterministic. An empty graph yields an empty labelling.
func Solve(g *Graph) Cut {
	if g.NumNodes == 0 {
		return Cut{Labels: []Label{}}
	}
	f := newFlowNetwork(g)
	flow := f.maxFlow()

	reach := f.residualReach()
	labels := make([]Label, g.NumNodes)
	for i := range labels {
		if reach[i] {
			labels[i] = LabelEdit
		}
	}
	return Cut{Labels: labels, Flow: flow}
}

// flowNetwork is a residual network in compressed adjacency form. Node
// ids 0..n-1 are voxels, s and t are the two terminals. Every arc a has a
// paired reverse arc rev[a].
type flowNetwork struct {
	s, t  int32
	start []int32 // arcs of node u are start[u]..start[u+1]-1
	to    []int32
	rev   []int32
	cap   []float64

	eps float64

	level []int32
	iter  []int32
	queue []int32
	path  []int32
}

func newFlowNetwork(g *Graph) *flowNetwork {
	n := g.NumNodes + 2
	f := &flowNetwork{
		s:     int32(g.NumNodes),
		t:     int32(g.NumNodes + 1),
		start: make([]int32, n+1),
		level: make([]int32, n),
		iter:  make([]int32, n),
		queue: make([]int32, 0, n),
	}

	deg := f.start[1:]
	for u := 0; u < g.NumNodes; u++ {
		if g.Source[u] > 0 {
			deg[f.s]++
			deg[u]++
		}
		if g.Sink[u] > 0 {
			deg[u]++
			deg[f.t]++
		}
	}
	maxCap := 0.0
	for _, e := range g.Edges {
		deg[e.U]++
		deg[e.V]++
		if e.Cap > maxCap && !math.IsInf(e.Cap, 1) {
			maxCap = e.Cap
		}
	}
	f.eps = flowEpsilon * maxCap
	for u := 1; u <= n; u++ {
		f.start[u] += f.start[u-1]
	}

	arcs := f.start[n]
	f.to = make([]int32, arcs)
	f.rev = make([]int32, arcs)
	f.cap = make([]float64, arcs)
	next := make([]int32, n)
	copy(next, f.start[:n])

	add := func(u, v int32, c, rc float64) {
		a, b := next[u], next[v]
		next[u]++
		next[v]++
		f.to[a], f.cap[a], f.rev[a] = v, c, b
		f.to[b], f.cap[b], f.rev[b] = u, rc, a
	}
	for u := 0; u < g.NumNodes; u++ {
		if g.Source[u] > 0 {
			add(f.s, int32(u), g.Source[u], 0)
		}
		if g.Sink[u] > 0 {
			add(int32(u), f.t, g.Sink[u], 0)
		}
	}
	for _, e := range g.Edges {
		add(e.U, e.V, e.Cap, e.Cap)
	}
	return f
}

func (f *flowNetwork) maxFlow() float64 {
	flow := 0.0
	for f.buildLevels() {
		copy(f.iter, f.start[:len(f.iter)])
		for {
			pushed := f.augment()
			if pushed == 0 {
				break
			}
			flow += pushed
		}
	}
	return flow
}

// buildLevels assigns BFS distances from s over unsaturated arcs and
// reports whether t is reachable.
func (f *flowNetwork) buildLevels() bool {
	for i := range f.level {
		f.level[i] = -1
	}
	f.level[f.s] = 0
	q := append(f.queue[:0], f.s)
	for head := 0; head < len(q); head++ {
		u := q[head]
		for a := f.start[u]; a < f.start[u+1]; a++ {
			v := f.to[a]
			if f.level[v] < 0 && f.cap[a] > f.eps {
				f.level[v] = f.level[u] + 1
				q = append(q, v)
			}
		}
	}
	f.queue = q
	return f.level[f.t] >= 0
}

// augment finds one s-t path in the level graph and saturates its
// bottleneck. Dead ends are pruned by clearing their level. It returns
// the amount pushed, or 0 when the level graph is blocked.
func (f *flowNetwork) augment() float64 {
	path := f.path[:0]
	u := f.s
	for {
		if u == f.t {
			push := math.Inf(1)
			for _, a := range path {
				if f.cap[a] < push {
					push = f.cap[a]
				}
			}
			for _, a := range path {
				f.cap[a] -= push
				f.cap[f.rev[a]] += push
			}
			f.path = path
			return push
		}

		advanced := false
		for ; f.iter[u] < f.start[u+1]; f.iter[u]++ {
			a := f.iter[u]
			v := f.to[a]
			if f.cap[a] > f.eps && f.level[v] == f.level[u]+1 {
				path = append(path, a)
				u = v
				advanced = true
				break
			}
		}
		if advanced {
			continue
		}

		if u == f.s {
			f.path = path
			return 0
		}
		f.level[u] = -1
		a := path[len(path)-1]
		path = path[:len(path)-1]
		u = f.to[f.rev[a]]
		f.iter[u]++
	}
}

// residualReach marks every node reachable from s over unsaturated arcs.
func (f *flowNetwork) residualReach() []bool {
	seen := make([]bool, len(f.level))
	seen[f.s] = true
	q := append(f.queue[:0], f.s)
	for head := 0; head < len(q); head++ {
		u := q[head]
		for a := f.start[u]; a < f.start[u+1]; a++ {
			v := f.to[a]
			if !seen[v] && f.cap[a] > f.eps {
				seen[v] = true
				q = append(q, v)
			}
		}
	}
	f.queue = q
	return seen
}
