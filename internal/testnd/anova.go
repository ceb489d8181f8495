package testnd

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"permcluster/domain/core"
	"permcluster/domain/ndvar"
	"permcluster/internal/dist"
	"permcluster/ports"
)

// ANOVAResult holds one F map and one cluster permutation outcome per model
// effect, keyed by effect name.
type ANOVAResult struct {
	TestID  core.TestID
	Name    string
	Effects []string
	FMaps   map[string]*ndvar.NDVar
	// Results is nil when Options.Samples is 0.
	Results map[string]*dist.Result
}

// ANOVA fits the model to every point of y and, when permutation is
// requested, runs one cluster test per effect against the shared resampled
// fits. F clusters are one-sided: only the upper threshold applies.
func ANOVA(ctx context.Context, y *ndvar.NDVar, fitter ports.ModelFitter, opts Options) (*ANOVAResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := requireCases(y, 3); err != nil {
		return nil, err
	}
	effects := fitter.Effects()
	if len(effects) == 0 {
		return nil, core.NewDegenerateInputError("model has no effects")
	}

	n := y.NCases()
	np := y.NPoints()
	fmaps, err := fitter.FMaps(y.Data, n, np)
	if err != nil {
		return nil, err
	}

	name := opts.name(y)
	res := &ANOVAResult{
		TestID:  core.TestID(core.NewID()),
		Name:    name,
		Effects: effects,
		FMaps:   make(map[string]*ndvar.NDVar, len(effects)),
	}
	for _, e := range effects {
		fm, ok := fmaps[e]
		if !ok {
			return nil, fmt.Errorf("fitter returned no map for effect %q", e)
		}
		res.FMaps[e] = pointVar(fm, y, name+": "+e, "F")
	}

	if opts.Samples == 0 {
		return res, nil
	}

	cdists := make(map[string]*dist.Dist, len(effects))
	pending := 0
	for _, e := range effects {
		fmin := fThreshold(opts.pmin(), fitter.EffectDf(e), fitter.ErrorDf())
		cd, err := dist.New(y, opts.Samples, &fmin, nil, dist.Config{
			TStart: opts.TStart,
			TStop:  opts.TStop,
			Meas:   "F",
			Name:   name + ": " + e,
		})
		if err != nil {
			return nil, err
		}
		if err := cd.AddOriginal(fmaps[e]); err != nil {
			return nil, err
		}
		cdists[e] = cd
		if !cd.Finalized() {
			pending++
		}
	}

	if pending > 0 {
		// One fit per permutation feeds every effect still accumulating.
		err := opts.Resampler.Resample(ctx, y, opts.Samples, func(yr *ndvar.NDVar) error {
			pm, err := fitter.FMaps(yr.Data, n, np)
			if err != nil {
				return err
			}
			for _, e := range effects {
				cd := cdists[e]
				if cd.Finalized() {
					continue
				}
				if err := cd.AddPerm(pm[e]); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	res.Results = make(map[string]*dist.Result, len(effects))
	for _, e := range effects {
		r, err := cdists[e].Result()
		if err != nil {
			return nil, err
		}
		res.Results[e] = r
	}
	return res, nil
}

// FOneway computes a pointwise one-way ANOVA over the groups assignment and
// returns the uncorrected p map. groups assigns each case a group label.
func FOneway(y *ndvar.NDVar, groups []int, opts Options) (*ndvar.NDVar, error) {
	if err := requireCases(y, 3); err != nil {
		return nil, err
	}
	n := y.NCases()
	if len(groups) != n {
		return nil, core.NewShapeError(n, len(groups))
	}
	byGroup := map[int][]int{}
	for i, g := range groups {
		byGroup[g] = append(byGroup[g], i)
	}
	k := len(byGroup)
	if k < 2 {
		return nil, core.NewDegenerateInputError("one-way ANOVA needs at least 2 groups")
	}
	for _, idx := range byGroup {
		if len(idx) < 2 {
			return nil, core.NewDegenerateInputError("every group needs at least 2 cases")
		}
	}
	dfB := k - 1
	dfW := n - k
	fdist := distuv.F{D1: float64(dfB), D2: float64(dfW)}

	np := y.NPoints()
	pmap := make([]float64, np)
	for j := 0; j < np; j++ {
		var grand float64
		for i := 0; i < n; i++ {
			grand += y.Data[i*np+j]
		}
		grand /= float64(n)

		var ssB, ssW float64
		for _, idx := range byGroup {
			var sum float64
			for _, i := range idx {
				sum += y.Data[i*np+j]
			}
			m := sum / float64(len(idx))
			d := m - grand
			ssB += float64(len(idx)) * d * d
			for _, i := range idx {
				e := y.Data[i*np+j] - m
				ssW += e * e
			}
		}
		f := (ssB / float64(dfB)) / (ssW / float64(dfW))
		pmap[j] = 1 - fdist.CDF(f)
	}
	return pointVar(pmap, y, opts.name(y), "p"), nil
}
