package testnd

import (
	"context"
	"fmt"
	"math"

	"permcluster/domain/core"
	"permcluster/domain/ndvar"
	"permcluster/internal/dist"
)

// CorrResult bundles the correlation map with the optional cluster
// permutation outcome.
type CorrResult struct {
	TestID core.TestID
	Name   string
	N, Df  int
	// R is the Pearson correlation map. Its Info carries the r values
	// corresponding to conventional significance levels ("r(0.05)", ...).
	R *ndvar.NDVar
	// Cluster is nil when Options.Samples is 0.
	Cluster *dist.Result
}

// Corr correlates every point of y with the per-case predictor x.
//
// norm optionally assigns each case to a normalization group; y is z-scored
// per point within each group before correlating, removing group offsets
// from the relationship. Pass nil to correlate raw values.
func Corr(ctx context.Context, y *ndvar.NDVar, x []float64, norm []int, opts Options) (*CorrResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := requireCases(y, 3); err != nil {
		return nil, err
	}
	n := y.NCases()
	if len(x) != n {
		return nil, core.NewShapeError(n, len(x))
	}
	if norm != nil && len(norm) != n {
		return nil, core.NewShapeError(n, len(norm))
	}
	mx := mean(x)
	if math.IsNaN(mx) {
		return nil, core.NewDegenerateInputError("predictor mean is NaN")
	}

	np := y.NPoints()
	df := n - 2

	ydata := y.Data
	if norm != nil {
		ydata = zscoreWithin(y.Data, n, np, norm)
	}
	xc := make([]float64, n)
	var ssX float64
	for i, v := range x {
		xc[i] = v - mx
		ssX += xc[i] * xc[i]
	}
	stdX := math.Sqrt(ssX / float64(n))
	if stdX == 0 {
		return nil, core.NewDegenerateInputError("predictor has zero variance")
	}

	rmap := corrMap(ydata, n, np, xc, stdX)
	name := opts.name(y)
	res := &CorrResult{
		TestID: core.TestID(core.NewID()),
		Name:   name,
		N:      n,
		Df:     df,
		R:      pointVar(rmap, y, name, "r"),
	}
	for _, p := range []float64{0.05, 0.01, 0.001} {
		res.R.Info[fmt.Sprintf("r(%g)", p)] = fmt.Sprintf("%.6f", rThreshold(p, df))
	}

	if opts.Samples == 0 {
		return res, nil
	}

	rmin := rThreshold(opts.pmin(), df)
	rneg := -rmin
	cd, err := dist.New(y, opts.Samples, &rmin, &rneg, dist.Config{
		TStart: opts.TStart,
		TStop:  opts.TStop,
		Meas:   "r",
		Name:   name,
	})
	if err != nil {
		return nil, err
	}
	if err := cd.AddOriginal(rmap); err != nil {
		return nil, err
	}
	if !cd.Finalized() {
		// Permutations reorder the cases of y against the fixed predictor;
		// the group normalization is not recomputed.
		yn := y
		if norm != nil {
			yn, err = ndvar.New(ydata, y.Dims, y.VarName)
			if err != nil {
				return nil, err
			}
		}
		err = opts.Resampler.Resample(ctx, yn, opts.Samples, func(yr *ndvar.NDVar) error {
			return cd.AddPerm(corrMap(yr.Data, n, np, xc, stdX))
		})
		if err != nil {
			return nil, err
		}
	}
	res.Cluster, err = cd.Result()
	if err != nil {
		return nil, err
	}
	return res, nil
}

// zscoreWithin z-scores y per point within each normalization group.
// Standard deviation uses divisor k (population form).
func zscoreWithin(y []float64, nCases, nPoints int, norm []int) []float64 {
	out := make([]float64, len(y))
	copy(out, y)

	groups := map[int][]int{}
	for i, g := range norm {
		groups[g] = append(groups[g], i)
	}
	for _, idx := range groups {
		fk := float64(len(idx))
		for j := 0; j < nPoints; j++ {
			var sum float64
			for _, i := range idx {
				sum += out[i*nPoints+j]
			}
			m := sum / fk
			var ss float64
			for _, i := range idx {
				d := out[i*nPoints+j] - m
				ss += d * d
			}
			sd := math.Sqrt(ss / fk)
			for _, i := range idx {
				if sd == 0 {
					out[i*nPoints+j] = 0
				} else {
					out[i*nPoints+j] = (out[i*nPoints+j] - m) / sd
				}
			}
		}
	}
	return out
}
