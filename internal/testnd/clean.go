package testnd

import (
	"fmt"
	"math"

	"permcluster/domain/core"
	"permcluster/domain/ndvar"
)

// CleanTimeAxis suppresses threshold exceedances that do not persist for a
// minimum duration: positions pass when the map value is >= above, <= below,
// or both (at least one bound is required), and only runs of passing samples
// lasting dtmin or longer along the time axis survive. Everything else is
// replaced by null.
func CleanTimeAxis(pmap *ndvar.NDVar, dtmin float64, below, above *float64, null float64) (*ndvar.NDVar, error) {
	if pmap == nil || len(pmap.Data) == 0 {
		return nil, core.ErrEmptyData
	}
	if pmap.HasCase() {
		return nil, fmt.Errorf("%w: expected a parameter map, got case data", core.ErrShapeMismatch)
	}
	if below == nil && above == nil {
		return nil, fmt.Errorf("%w: need a below or above bound", core.ErrUnsupportedOption)
	}
	td, ok := pmap.TimeDim()
	if !ok {
		return nil, fmt.Errorf("map %q has no time dimension", pmap.VarName)
	}
	if dtmin <= 0 {
		return nil, fmt.Errorf("dtmin must be positive, got %g", dtmin)
	}
	// any fraction of a sample rounds up to a full sample
	diMin := int(math.Ceil(dtmin/td.TStep - 1e-9))
	if diMin < 1 {
		diMin = 1
	}

	passes := func(v float64) bool {
		switch {
		case below == nil:
			return v >= *above
		case above == nil:
			return v <= *below
		default:
			return v >= *above && v <= *below
		}
	}

	out := pmap.Copy()
	shape := pmap.Shape()
	axis := pmap.TimeAxis()
	nt := shape[axis]
	outer, inner := 1, 1
	for i := 0; i < axis; i++ {
		outer *= shape[i]
	}
	for i := axis + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*nt*inner + in
			runStart := -1
			for t := 0; t <= nt; t++ {
				ok := t < nt && passes(out.Data[base+t*inner])
				if ok && runStart < 0 {
					runStart = t
				}
				if !ok && runStart >= 0 {
					if t-runStart < diMin {
						for s := runStart; s < t; s++ {
							out.Data[base+s*inner] = null
						}
					}
					runStart = -1
				}
			}
			for t := 0; t < nt; t++ {
				if !passes(pmap.Data[base+t*inner]) {
					out.Data[base+t*inner] = null
				}
			}
		}
	}
	return out, nil
}
