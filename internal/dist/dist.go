// Package dist accumulates the permutation null distribution of the maximum
// cluster-mass statistic and finalizes it into per-cluster p-values and
// output maps. One Dist instance serves exactly one test invocation.
//
// Use proceeds in three steps: construct with New, add the observed
// parameter map with AddOriginal, then (if clusters were found) add one
// parameter map per permutation with AddPerm. After the configured number of
// permutations the accumulator finalizes itself; Result returns the
// read-only outcome.
package dist

import (
	"fmt"

	"permcluster/domain/core"
	"permcluster/domain/ndvar"
	"permcluster/internal/label"
)

type state int

const (
	stateCreated state = iota
	stateHasOriginal
	stateFinalized
)

// Config carries the optional accumulator settings.
type Config struct {
	// TStart/TStop restrict cluster finding to a time window. Nil bounds
	// extend to the corresponding end of the epoch.
	TStart, TStop *float64
	// Meas labels the parameter measurement ("t", "r", "F").
	Meas string
	// Name labels the comparison for reports.
	Name string
	// CloseTime would close gaps shorter than this interval; not implemented.
	CloseTime float64
}

// Dist is the cluster statistic accumulator.
type Dist struct {
	samples        int
	tUpper, tLower *float64
	meas, name     string

	pointDims []ndvar.Dim
	fullShape []int
	nFull     int

	timeAxis int // within pointDims, -1 without time dimension
	crop     bool
	istart   int
	cropDims []ndvar.Dim
	cropShape []int
	nCrop    int

	labeler *label.Labeler

	dist  []float64
	i     int
	state state

	clusterIm []int32
	cids      []int32
	origPmap  []float64 // uncropped
	cropPmap  []float64

	result *Result
}

// New binds an accumulator to the dependent variable's shape and a pair of
// signed thresholds, allocating an all-zero null distribution of length
// samples.
func New(y *ndvar.NDVar, samples int, tUpper, tLower *float64, cfg Config) (*Dist, error) {
	if y == nil || len(y.Data) == 0 {
		return nil, core.ErrEmptyData
	}
	if !y.HasCase() {
		return nil, core.ErrMissingCase
	}
	if samples <= 0 {
		return nil, fmt.Errorf("number of permutations must be positive, got %d", samples)
	}
	if err := validateThresholds(tUpper, tLower); err != nil {
		return nil, err
	}
	if cfg.CloseTime != 0 {
		return nil, fmt.Errorf("%w: close_time gap closing", core.ErrUnsupportedOption)
	}

	d := &Dist{
		samples:  samples,
		tUpper:   tUpper,
		tLower:   tLower,
		meas:     cfg.Meas,
		name:     cfg.Name,
		timeAxis: y.TimeAxis(),
		dist:     make([]float64, samples),
		i:        samples,
	}
	d.pointDims = append(d.pointDims, y.PointDims()...)
	d.fullShape = y.PointShape()
	d.nFull = y.NPoints()

	d.cropDims = d.pointDims
	d.cropShape = d.fullShape
	d.nCrop = d.nFull
	if cfg.TStart != nil || cfg.TStop != nil {
		td, ok := y.TimeDim()
		if !ok {
			return nil, fmt.Errorf("time window requested but %q has no time dimension", y.VarName)
		}
		istart, istop := td.Window(cfg.TStart, cfg.TStop)
		if istop <= istart {
			return nil, fmt.Errorf("%w: empty analysis window", core.ErrEmptyData)
		}
		if istart > 0 || istop < td.NSamples {
			d.crop = true
			d.istart = istart
			d.cropDims = make([]ndvar.Dim, len(d.pointDims))
			copy(d.cropDims, d.pointDims)
			d.cropDims[d.timeAxis] = ndvar.Time{TMin: td.At(istart), TStep: td.TStep, NSamples: istop - istart}
			d.cropShape = make([]int, len(d.fullShape))
			copy(d.cropShape, d.fullShape)
			d.cropShape[d.timeAxis] = istop - istart
			d.nCrop = 1
			for _, s := range d.cropShape {
				d.nCrop *= s
			}
		}
	}

	labeler, err := label.New(d.cropDims)
	if err != nil {
		return nil, err
	}
	d.labeler = labeler
	return d, nil
}

func validateThresholds(tUpper, tLower *float64) error {
	if tUpper == nil && tLower == nil {
		return core.NewThresholdError("need t_upper or t_lower")
	}
	if tUpper != nil && *tUpper <= 0 {
		return core.NewThresholdError(fmt.Sprintf("t_upper needs to be > 0; is %g", *tUpper))
	}
	if tLower != nil && *tLower >= 0 {
		return core.NewThresholdError(fmt.Sprintf("t_lower needs to be < 0; is %g", *tLower))
	}
	if tUpper != nil && tLower != nil && *tLower != -*tUpper {
		return core.NewThresholdError("t_lower must equal -t_upper")
	}
	return nil
}

// NClusters returns the number of clusters found in the observed map.
// Drivers use it to skip permutation entirely when nothing exceeded the
// threshold.
func (d *Dist) NClusters() int { return len(d.cids) }

// Samples returns the configured permutation count.
func (d *Dist) Samples() int { return d.samples }

// Finalized reports whether the accumulator has produced its result.
func (d *Dist) Finalized() bool { return d.state == stateFinalized }

// AddOriginal submits the observed statistic parameter map (uncropped, in
// the dependent variable's point shape). It may be called exactly once and
// must precede AddPerm. Finding zero clusters finalizes immediately.
func (d *Dist) AddOriginal(pmap []float64) error {
	if d.state != stateCreated {
		return core.ErrDuplicateSubmission
	}
	if len(pmap) != d.nFull {
		return core.NewShapeError(d.nFull, len(pmap))
	}

	d.origPmap = make([]float64, len(pmap))
	copy(d.origPmap, pmap)
	d.cropPmap = d.cropMap(d.origPmap)

	d.clusterIm, d.cids = d.labeler.LabelTwoTailed(d.cropPmap, d.tUpper, d.tLower)
	d.state = stateHasOriginal
	if len(d.cids) == 0 {
		d.finalize()
	}
	return nil
}

// AddPerm submits one permuted statistic parameter map (uncropped; cropping
// is applied symmetrically with AddOriginal). The permutation that produced
// the map is immaterial; the accumulator records only the largest absolute
// cluster mass. The call that consumes the final permutation slot finalizes
// the distribution.
func (d *Dist) AddPerm(pmap []float64) error {
	switch d.state {
	case stateCreated:
		return core.ErrMissingOriginal
	case stateFinalized:
		return core.ErrTooManyPermutations
	}
	if len(pmap) != d.nFull {
		return core.NewShapeError(d.nFull, len(pmap))
	}

	// Decrement first: the counter both selects the write slot (the array
	// fills from its last index backward) and triggers finalization.
	d.i--
	cropped := d.cropMap(pmap)
	labels, ids := d.labeler.LabelTwoTailed(cropped, d.tUpper, d.tLower)
	if len(ids) > 0 {
		sums := clusterSums(cropped, labels, ids)
		maxAbs := 0.0
		for _, v := range sums {
			if v < 0 {
				v = -v
			}
			if v > maxAbs {
				maxAbs = v
			}
		}
		d.dist[d.i] = maxAbs
	}
	if d.i == 0 {
		d.finalize()
	}
	return nil
}

// Result returns the finalized outcome.
func (d *Dist) Result() (*Result, error) {
	if d.state != stateFinalized {
		return nil, core.ErrNotFinalized
	}
	return d.result, nil
}

func (d *Dist) cropMap(pmap []float64) []float64 {
	if !d.crop {
		return pmap
	}
	stop := d.istart + d.cropShape[d.timeAxis]
	return ndvar.CropAxis(pmap, d.fullShape, d.timeAxis, d.istart, stop)
}

func (d *Dist) uncropMap(cropped []float64, background float64) []float64 {
	if !d.crop {
		out := make([]float64, len(cropped))
		copy(out, cropped)
		return out
	}
	return ndvar.UncropAxis(cropped, d.cropShape, d.timeAxis, d.istart, d.fullShape[d.timeAxis], background)
}

// clusterSums computes the cluster-mass statistic (sum of map values over
// member positions) for every id.
func clusterSums(pmap []float64, labels []int32, ids []int32) map[int32]float64 {
	sums := make(map[int32]float64, len(ids))
	for _, id := range ids {
		sums[id] = 0
	}
	for i, lb := range labels {
		if lb == 0 {
			continue
		}
		if _, ok := sums[lb]; ok {
			sums[lb] += pmap[i]
		}
	}
	return sums
}

// percentileRankMean returns the percentile rank of score within sample with
// mean tie handling: tied values count half below, half above.
func percentileRankMean(sample []float64, score float64) float64 {
	below, belowOrEqual := 0, 0
	for _, v := range sample {
		if v < score {
			below++
		}
		if v <= score {
			belowOrEqual++
		}
	}
	return float64(below+belowOrEqual) / (2 * float64(len(sample)))
}
