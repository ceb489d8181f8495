// Package label implements connectivity-aware cluster labeling: connected
// component labeling of thresholded parameter maps over a product of regular
// lattice axes and at most one graph-based axis (sensors, sources).
package label

import (
	"permcluster/domain/core"
	"permcluster/domain/ndvar"
)

// Labeler labels thresholded maps over a fixed point shape. It precomputes
// the axis permutation that moves a graph axis to the front, so per-map
// labeling does no layout bookkeeping.
type Labeler struct {
	shape []int
	n     int

	graphAxis int // -1 when all axes are adjacent
	graph     *ndvar.Graph
	nChan     int
	rest      int

	// origIdx maps (chan, rest) flat layout to original layout; nil when the
	// graph axis is already first or absent.
	origIdx []int
}

// New builds a Labeler for the given point dimensions. More than one
// non-adjacent dimension is not implemented and yields ErrUnsupportedAdjacency.
func New(dims []ndvar.Dim) (*Labeler, error) {
	l := &Labeler{graphAxis: -1}
	n := 1
	for i, d := range dims {
		l.shape = append(l.shape, d.Len())
		n *= d.Len()
		if !d.Adjacent() {
			if l.graphAxis >= 0 {
				return nil, core.ErrUnsupportedAdjacency
			}
			l.graphAxis = i
			sensor, ok := d.(ndvar.Sensor)
			if !ok || sensor.Graph == nil {
				return nil, core.ErrUnsupportedAdjacency
			}
			l.graph = sensor.Graph
		}
	}
	if n == 0 {
		return nil, core.ErrEmptyData
	}
	l.n = n
	if l.graphAxis >= 0 {
		l.nChan = l.shape[l.graphAxis]
		l.rest = n / l.nChan
		if l.graphAxis > 0 {
			l.origIdx = swapToFront(l.shape, l.graphAxis)
		}
	}
	return l, nil
}

// N returns the number of map positions the labeler expects.
func (l *Labeler) N() int { return l.n }

// LabelTwoTailed labels clusters of pmap values above tUpper and below
// tLower under the combined adjacency relation. The two signs receive
// disjoint positive ids: lower-tail ids are offset above the largest
// upper-tail id. A nil threshold disables the corresponding tail.
//
// The returned label image is in the original axis order; ids are ascending.
// A map with no exceedances yields an all-zero image and no ids.
func (l *Labeler) LabelTwoTailed(pmap []float64, tUpper, tLower *float64) ([]int32, []int32) {
	var labels []int32
	var ids []int32

	if tUpper != nil {
		labels, ids = l.labelOneTailed(pmap, func(v float64) bool { return v > *tUpper })
	}
	if tLower != nil {
		if tUpper == nil {
			labels, ids = l.labelOneTailed(pmap, func(v float64) bool { return v < *tLower })
		} else {
			labelsLow, idsLow := l.labelOneTailed(pmap, func(v float64) bool { return v < *tLower })
			var offset int32
			if len(ids) > 0 {
				offset = ids[len(ids)-1]
			}
			for i, lb := range labelsLow {
				if lb > 0 {
					labels[i] = lb + offset
				}
			}
			for _, id := range idsLow {
				ids = append(ids, id+offset)
			}
		}
	}
	return labels, ids
}

// labelOneTailed labels the boolean exceedance map for one sign.
func (l *Labeler) labelOneTailed(pmap []float64, exceeds func(float64) bool) ([]int32, []int32) {
	if l.graphAxis < 0 {
		mask := make([]bool, l.n)
		for i, v := range pmap {
			mask[i] = exceeds(v)
		}
		return latticeLabel(mask, l.shape)
	}

	// Graph axis first, remaining axes flattened. The lattice pass connects
	// positions along the flattened axis only; graph-axis connectivity comes
	// exclusively from the explicit adjacency edges in the merge pass.
	mask := make([]bool, l.n)
	if l.origIdx == nil {
		for i, v := range pmap {
			mask[i] = exceeds(v)
		}
	} else {
		for f, oi := range l.origIdx {
			mask[f] = exceeds(pmap[oi])
		}
	}

	labels, ids := rowRunLabel(mask, l.nChan, l.rest)
	ids = l.mergeGraph(labels, ids, mask)

	if l.origIdx != nil {
		orig := make([]int32, l.n)
		for f, oi := range l.origIdx {
			orig[oi] = labels[f]
		}
		labels = orig
	}
	return labels, ids
}

// mergeGraph merges lattice labels that are connected through graph edges.
// For every fixed index along the flattened axis it inspects the active
// graph positions; labels inside one graph-connected group collapse onto the
// smallest member id.
func (l *Labeler) mergeGraph(labels []int32, ids []int32, mask []bool) []int32 {
	idSet := make(map[int32]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	active := make([]int, 0, l.nChan)
	for j := 0; j < l.rest; j++ {
		if len(idSet) <= 1 {
			break
		}
		active = active[:0]
		distinct := int32(0)
		multi := false
		for c := 0; c < l.nChan; c++ {
			if !mask[c*l.rest+j] {
				continue
			}
			active = append(active, c)
			if lb := labels[c*l.rest+j]; distinct == 0 {
				distinct = lb
			} else if lb != distinct {
				multi = true
			}
		}
		if !multi {
			continue
		}

		for _, comp := range l.graph.ComponentsAmong(active) {
			if len(comp) < 2 {
				continue
			}
			keep := int32(0)
			var merge []int32
			seen := map[int32]bool{}
			for _, c := range comp {
				lb := labels[c*l.rest+j]
				if seen[lb] {
					continue
				}
				seen[lb] = true
				if keep == 0 || lb < keep {
					if keep != 0 {
						merge = append(merge, keep)
					}
					keep = lb
				} else {
					merge = append(merge, lb)
				}
			}
			if len(merge) == 0 {
				continue
			}
			mergeSet := make(map[int32]bool, len(merge))
			for _, m := range merge {
				mergeSet[m] = true
				delete(idSet, m)
			}
			for i, lb := range labels {
				if mergeSet[lb] {
					labels[i] = keep
				}
			}
		}
	}

	out := make([]int32, 0, len(idSet))
	for _, id := range ids {
		if idSet[id] {
			out = append(out, id)
		}
	}
	return out
}

// latticeLabel performs N-dimensional connected component labeling with
// one-step-per-axis adjacency (4-connectivity in 2-D, 6 in 3-D).
func latticeLabel(mask []bool, shape []int) ([]int32, []int32) {
	n := len(mask)
	labels := make([]int32, n)
	strides := rowMajorStrides(shape)

	var ids []int32
	var next int32
	queue := make([]int, 0, 64)
	for start := 0; start < n; start++ {
		if !mask[start] || labels[start] != 0 {
			continue
		}
		next++
		ids = append(ids, next)
		queue = append(queue[:0], start)
		labels[start] = next
		for qi := 0; qi < len(queue); qi++ {
			u := queue[qi]
			for a, stride := range strides {
				pos := (u / stride) % shape[a]
				if pos > 0 {
					if v := u - stride; mask[v] && labels[v] == 0 {
						labels[v] = next
						queue = append(queue, v)
					}
				}
				if pos < shape[a]-1 {
					if v := u + stride; mask[v] && labels[v] == 0 {
						labels[v] = next
						queue = append(queue, v)
					}
				}
			}
		}
	}
	return labels, ids
}

// rowRunLabel labels runs of consecutive true positions within each row of a
// (rows, cols) mask. Rows are not connected to each other here.
func rowRunLabel(mask []bool, rows, cols int) ([]int32, []int32) {
	labels := make([]int32, rows*cols)
	var ids []int32
	var next int32
	for r := 0; r < rows; r++ {
		inRun := false
		for c := 0; c < cols; c++ {
			i := r*cols + c
			if !mask[i] {
				inRun = false
				continue
			}
			if !inRun {
				next++
				ids = append(ids, next)
				inRun = true
			}
			labels[i] = next
		}
	}
	return labels, ids
}

// swapToFront returns the mapping from (axis-swapped, flattened) layout back
// to original row-major indices, mirroring a transpose of axes 0 and axis.
func swapToFront(shape []int, axis int) []int {
	ndim := len(shape)
	order := make([]int, ndim)
	for i := range order {
		order[i] = i
	}
	order[0], order[axis] = order[axis], order[0]

	strides := rowMajorStrides(shape)
	newShape := make([]int, ndim)
	for k, ax := range order {
		newShape[k] = shape[ax]
	}

	n := 1
	for _, s := range shape {
		n *= s
	}
	origIdx := make([]int, n)
	idx := make([]int, ndim)
	for f := 0; f < n; f++ {
		rem := f
		for k := ndim - 1; k >= 0; k-- {
			idx[k] = rem % newShape[k]
			rem /= newShape[k]
		}
		oi := 0
		for k, ax := range order {
			oi += idx[k] * strides[ax]
		}
		origIdx[f] = oi
	}
	return origIdx
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}
