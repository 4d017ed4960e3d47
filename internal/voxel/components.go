package voxel

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/topo"
)

// Components returns the 26-connected components of strictly positive
// density, each as ascending linear grid indices. Components are ordered
// by size, largest first; equal sizes are ordered by their smallest index.
func Components(density *ScalarGrid) [][]int {
	mask := make([]bool, len(density.Data))
	for i, v := range density.Data {
		mask[i] = v > 0
	}
	lattice := NewLattice(density.Dims, mask)
	if lattice.Len() == 0 {
		return nil
	}

	raw := topo.ConnectedComponents(lattice)
	comps := make([][]int, len(raw))
	for i, nodes := range raw {
		cells := make([]int, len(nodes))
		for j, n := range nodes {
			cells[j] = int(n.ID())
		}
		sort.Ints(cells)
		comps[i] = cells
	}
	sort.Slice(comps, func(a, b int) bool {
		if len(comps[a]) != len(comps[b]) {
			return len(comps[a]) > len(comps[b])
		}
		return comps[a][0] < comps[b][0]
	})
	return comps
}

// KeepLargestComponents keeps the keep largest 26-connected components of
// edited's positive density and restores every other cell from reference.
// It returns the number of cells whose density changed. keep <= 0 is a
// no-op.
func KeepLargestComponents(edited, reference *ScalarGrid, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	if edited.Dims != reference.Dims {
		return 0, fmt.Errorf("component cleanup: edited dims %s do not match reference dims %s",
			edited.Dims, reference.Dims)
	}

	comps := Components(edited)
	kept := make([]bool, len(edited.Data))
	for i := 0; i < keep && i < len(comps); i++ {
		for _, cell := range comps[i] {
			kept[cell] = true
		}
	}

	changed := 0
	for i := range edited.Data {
		if kept[i] {
			continue
		}
		if edited.Data[i] != reference.Data[i] {
			edited.Data[i] = reference.Data[i]
			changed++
		}
	}
	return changed, nil
}
