// Package ndvar provides the labeled-array value type the statistical engine
// operates on: a dense float64 array with a fixed ordered list of typed
// dimension descriptors and a small metadata map. It replaces dynamic
// attribute-style dataset access with explicit field access.
package ndvar

import (
	"fmt"

	"permcluster/domain/core"
)

// NDVar is a dense N-dimensional array with named dimensions. The first
// dimension may be Case (raw measurements); parameter maps carry only point
// dimensions. Data is row-major.
type NDVar struct {
	Data    []float64
	Dims    []Dim
	VarName string
	Info    map[string]string
}

// New validates that data matches the dimension shape and wraps it.
func New(data []float64, dims []Dim, name string) (*NDVar, error) {
	if len(dims) == 0 {
		return nil, core.ErrEmptyData
	}
	want := 1
	for _, d := range dims {
		if d.Len() <= 0 {
			return nil, fmt.Errorf("%w: dimension %q has length %d", core.ErrEmptyData, d.Name(), d.Len())
		}
		want *= d.Len()
	}
	if len(data) != want {
		return nil, core.NewShapeError(want, len(data))
	}
	return &NDVar{Data: data, Dims: dims, VarName: name, Info: map[string]string{}}, nil
}

// Shape returns the length of every dimension.
func (v *NDVar) Shape() []int {
	shape := make([]int, len(v.Dims))
	for i, d := range v.Dims {
		shape[i] = d.Len()
	}
	return shape
}

// HasCase reports whether the first dimension is Case.
func (v *NDVar) HasCase() bool {
	_, ok := v.Dims[0].(Case)
	return ok
}

// NCases returns the number of cases, or 0 without a case dimension.
func (v *NDVar) NCases() int {
	if c, ok := v.Dims[0].(Case); ok {
		return c.NCases
	}
	return 0
}

// PointDims returns the dimensions excluding a leading case dimension.
func (v *NDVar) PointDims() []Dim {
	if v.HasCase() {
		return v.Dims[1:]
	}
	return v.Dims
}

// PointShape returns the shape excluding a leading case dimension.
func (v *NDVar) PointShape() []int {
	dims := v.PointDims()
	shape := make([]int, len(dims))
	for i, d := range dims {
		shape[i] = d.Len()
	}
	return shape
}

// NPoints returns the number of positions per case.
func (v *NDVar) NPoints() int {
	n := 1
	for _, d := range v.PointDims() {
		n *= d.Len()
	}
	return n
}

// TimeAxis returns the index of the time dimension among PointDims, or -1.
func (v *NDVar) TimeAxis() int {
	for i, d := range v.PointDims() {
		if _, ok := d.(Time); ok {
			return i
		}
	}
	return -1
}

// TimeDim returns the time dimension if present.
func (v *NDVar) TimeDim() (Time, bool) {
	for _, d := range v.PointDims() {
		if t, ok := d.(Time); ok {
			return t, true
		}
	}
	return Time{}, false
}

// Copy returns a deep copy sharing no data with the receiver.
func (v *NDVar) Copy() *NDVar {
	data := make([]float64, len(v.Data))
	copy(data, v.Data)
	dims := make([]Dim, len(v.Dims))
	copy(dims, v.Dims)
	info := make(map[string]string, len(v.Info))
	for k, val := range v.Info {
		info[k] = val
	}
	return &NDVar{Data: data, Dims: dims, VarName: v.VarName, Info: info}
}

// SubTime returns a copy cropped to the [tstart, tstop) window on the time
// axis, together with the index window into the uncropped axis. Without a
// time dimension the receiver is copied unchanged and the window covers the
// whole (absent) axis.
func (v *NDVar) SubTime(tstart, tstop *float64) (*NDVar, int, int, error) {
	td, ok := v.TimeDim()
	if !ok {
		return v.Copy(), 0, 0, fmt.Errorf("ndvar %q has no time dimension", v.VarName)
	}
	istart, istop := td.Window(tstart, tstop)
	if istop <= istart {
		return nil, 0, 0, fmt.Errorf("%w: empty time window [%d, %d)", core.ErrEmptyData, istart, istop)
	}
	axis := v.TimeAxis()
	if v.HasCase() {
		axis++
	}
	shape := v.Shape()
	data := CropAxis(v.Data, shape, axis, istart, istop)
	dims := make([]Dim, len(v.Dims))
	copy(dims, v.Dims)
	dims[axis] = Time{TMin: td.At(istart), TStep: td.TStep, NSamples: istop - istart}
	out, err := New(data, dims, v.VarName)
	if err != nil {
		return nil, 0, 0, err
	}
	for k, val := range v.Info {
		out.Info[k] = val
	}
	return out, istart, istop, nil
}

// CropAxis copies data restricted to [start, stop) along one axis.
func CropAxis(data []float64, shape []int, axis, start, stop int) []float64 {
	outer, inner := outerInner(shape, axis)
	n := shape[axis]
	width := stop - start
	out := make([]float64, outer*width*inner)
	for o := 0; o < outer; o++ {
		src := o * n * inner
		dst := o * width * inner
		copy(out[dst:dst+width*inner], data[src+start*inner:src+stop*inner])
	}
	return out
}

// UncropAxis embeds data (with the given cropped shape) back into an axis of
// fullLen positions starting at start, filling the rest with background.
func UncropAxis(data []float64, croppedShape []int, axis, start, fullLen int, background float64) []float64 {
	outer, inner := outerInner(croppedShape, axis)
	width := croppedShape[axis]
	out := make([]float64, outer*fullLen*inner)
	if background != 0 {
		for i := range out {
			out[i] = background
		}
	}
	for o := 0; o < outer; o++ {
		src := o * width * inner
		dst := o*fullLen*inner + start*inner
		copy(out[dst:dst+width*inner], data[src:src+width*inner])
	}
	return out
}

func outerInner(shape []int, axis int) (outer, inner int) {
	outer, inner = 1, 1
	for i := 0; i < axis; i++ {
		outer *= shape[i]
	}
	for i := axis + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	return outer, inner
}
