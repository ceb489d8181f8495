package ndvar

import (
	"math"
)

// Dim describes one axis of an NDVar.
//
// Adjacent reports whether neighborhood along the axis is implicit grid
// adjacency (previous/next index). Non-adjacent dimensions carry an explicit
// Graph describing which positions neighbor each other.
type Dim interface {
	Name() string
	Len() int
	Adjacent() bool
}

// Case is the dimension over measurement cases (subjects, trials). It is only
// present on raw dependent variables; parameter maps have cases collapsed.
type Case struct {
	NCases int
}

func (d Case) Name() string   { return "case" }
func (d Case) Len() int       { return d.NCases }
func (d Case) Adjacent() bool { return true }

// Time is a uniformly sampled time axis.
type Time struct {
	TMin     float64
	TStep    float64
	NSamples int
}

func (d Time) Name() string   { return "time" }
func (d Time) Len() int       { return d.NSamples }
func (d Time) Adjacent() bool { return true }

// At returns the time value at sample index i.
func (d Time) At(i int) float64 {
	return d.TMin + float64(i)*d.TStep
}

// Last returns the time value of the last sample.
func (d Time) Last() float64 {
	return d.At(d.NSamples - 1)
}

// IndexUp returns the smallest sample index whose time value is >= t,
// clipped to [0, NSamples].
func (d Time) IndexUp(t float64) int {
	if d.TStep <= 0 {
		return 0
	}
	// Tolerance keeps t values that land exactly on a sample from being
	// pushed to the next index by floating point noise.
	i := int(math.Ceil((t-d.TMin)/d.TStep - 1e-9))
	if i < 0 {
		i = 0
	}
	if i > d.NSamples {
		i = d.NSamples
	}
	return i
}

// Window translates an optional [tstart, tstop) time window into a half-open
// index window. Nil bounds extend to the corresponding end of the axis.
func (d Time) Window(tstart, tstop *float64) (istart, istop int) {
	istart = 0
	istop = d.NSamples
	if tstart != nil {
		istart = d.IndexUp(*tstart)
	}
	if tstop != nil {
		istop = d.IndexUp(*tstop)
	}
	if istop < istart {
		istop = istart
	}
	return istart, istop
}

// Sensor is a discrete sensor/source axis whose neighborhood is given by an
// explicit adjacency graph rather than index order.
type Sensor struct {
	SensorNames []string
	Graph       *Graph
}

func (d Sensor) Name() string   { return "sensor" }
func (d Sensor) Len() int       { return d.Graph.Len() }
func (d Sensor) Adjacent() bool { return false }

// Scalar is a generic uniform grid axis (e.g. frequency bins).
type Scalar struct {
	DimName string
	NPoints int
}

func (d Scalar) Name() string   { return d.DimName }
func (d Scalar) Len() int       { return d.NPoints }
func (d Scalar) Adjacent() bool { return true }
