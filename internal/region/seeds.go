package region

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// attentionClamp bounds sanitised attention values. Any finite bound keeps
// the two-way softmax well defined.
const attentionClamp = 1e30

// Seeds are the hard-constrained node sets of one segmentation run. Both
// slices hold ascending node indices and never share an element.
type Seeds struct {
	Edit   []int
	Object []int

	// Fallback is set when the primary probability rule produced fewer
	// than MinNumEditVoxels edit seeds and top-k selection was used.
	Fallback bool
	// Conflicts counts voxels selected by both rules; they stay edit seeds.
	Conflicts int
}

// Empty reports whether neither terminal has a seed.
func (s Seeds) Empty() bool {
	return len(s.Edit) == 0 && len(s.Object) == 0
}

// Probabilities returns the two-way softmax of (edit, object) attention per
// node. pEdit[i]+pObject[i] == 1 up to rounding.
func Probabilities(editAttn, objAttn []float64) (pEdit, pObject []float64) {
	pEdit = make([]float64, len(editAttn))
	pObject = make([]float64, len(editAttn))
	for i := range editAttn {
		e, o := sanitizeAttention(editAttn[i]), sanitizeAttention(objAttn[i])
		pEdit[i] = 1 / (1 + math.Exp(o-e))
		pObject[i] = 1 / (1 + math.Exp(e-o))
	}
	return pEdit, pObject
}

// SelectSeeds picks edit and object seed nodes from per-node attention.
//
// Primary rule: edit seeds are nodes whose edit probability reaches
// EditMaskThresh times the maximum; object seeds are an unbiased sample of
// at most NumObjVoxelsThresh object-dominant nodes drawn with rng. When
// fewer than MinNumEditVoxels primary edit seeds exist, both sets are
// replaced by the top-k nodes by raw attention. A node chosen for both
// terminals stays an edit seed.
func SelectSeeds(editAttn, objAttn []float64, cfg Config, rng *rand.Rand) Seeds {
	n := len(editAttn)
	if n == 0 {
		return Seeds{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.RandomSeed))
	}

	pEdit, pObject := Probabilities(editAttn, objAttn)
	top := floats.Max(pEdit)

	var seeds Seeds
	for i, p := range pEdit {
		if p >= cfg.EditMaskThresh*top {
			seeds.Edit = append(seeds.Edit, i)
		}
	}

	var dominant []int
	for i := range pObject {
		if pObject[i] > pEdit[i] {
			dominant = append(dominant, i)
		}
	}
	seeds.Object = subsample(dominant, cfg.NumObjVoxelsThresh, rng)

	if len(seeds.Edit) < cfg.MinNumEditVoxels {
		seeds.Fallback = true
		seeds.Edit = topK(editAttn, cfg.TopKEditThresh)
		seeds.Object = topK(objAttn, cfg.TopKObjThresh)
	}

	seeds.Object, seeds.Conflicts = without(seeds.Object, seeds.Edit)
	return seeds
}

// subsample draws at most limit elements of idx without replacement and
// returns them ascending.
func subsample(idx []int, limit int, rng *rand.Rand) []int {
	if len(idx) <= limit {
		return idx
	}
	perm := rng.Perm(len(idx))
	out := make([]int, limit)
	for i := range out {
		out[i] = idx[perm[i]]
	}
	sort.Ints(out)
	return out
}

// topK returns the k nodes with the largest raw values, ascending by node.
// Ties go to the lower node index.
func topK(values []float64, k int) []int {
	if k > len(values) {
		k = len(values)
	}
	if k <= 0 {
		return nil
	}
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sanitizeAttention(values[order[a]]) > sanitizeAttention(values[order[b]])
	})
	out := append([]int(nil), order[:k]...)
	sort.Ints(out)
	return out
}

// without removes every element of drop from idx. Both must be ascending.
func without(idx, drop []int) ([]int, int) {
	if len(idx) == 0 || len(drop) == 0 {
		return idx, 0
	}
	out := make([]int, 0, len(idx))
	removed, j := 0, 0
	for _, v := range idx {
		for j < len(drop) && drop[j] < v {
			j++
		}
		if j < len(drop) && drop[j] == v {
			removed++
			continue
		}
		out = append(out, v)
	}
	return out, removed
}

// sanitizeAttention maps NaN to 0 and clamps infinities so the softmax
// stays finite.
func sanitizeAttention(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > attentionClamp:
		return attentionClamp
	case v < -attentionClamp:
		return -attentionClamp
	}
	return v
}
