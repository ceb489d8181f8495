package testnd

import (
	"context"
	"fmt"

	"permcluster/domain/core"
	"permcluster/domain/ndvar"
	"permcluster/internal/dist"
)

// TTestResult bundles the parametric maps of a mass-univariate t-test with
// the optional cluster permutation outcome.
type TTestResult struct {
	TestID core.TestID
	Name   string
	// N holds the group sizes (one entry for one-sample and related tests).
	N  []int
	Df int
	// T is the t statistic map, P the parametric two-tailed p map, Diff the
	// effect (mean difference) map.
	T, P, Diff *ndvar.NDVar
	// Cluster is nil when Options.Samples is 0.
	Cluster *dist.Result
}

// TTest1Samp tests every point of y against popmean with a one-sample t-test.
func TTest1Samp(ctx context.Context, y *ndvar.NDVar, popmean float64, opts Options) (*TTestResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := requireCases(y, 2); err != nil {
		return nil, err
	}

	n := y.NCases()
	np := y.NPoints()
	df := n - 1
	tmap, err := t1SampMap(ctx, y.Data, n, np, popmean)
	if err != nil {
		return nil, err
	}

	res := newTTestResult(y, opts, tmap, df, []int{n})
	diff := make([]float64, np)
	fn := float64(n)
	for j := 0; j < np; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += y.Data[i*np+j]
		}
		diff[j] = sum/fn - popmean
	}
	res.Diff = pointVar(diff, y, res.Name, "mean")

	if opts.Samples == 0 {
		return res, nil
	}
	cluster, err := runClusterT(ctx, y, opts, df, tmap, func(yr *ndvar.NDVar) ([]float64, error) {
		return t1SampMap(ctx, yr.Data, n, np, popmean)
	})
	if err != nil {
		return nil, err
	}
	res.Cluster = cluster
	return res, nil
}

// TTestInd tests the first n1 cases of y against the remaining cases with an
// independent-samples t-test (pooled variance).
func TTestInd(ctx context.Context, y *ndvar.NDVar, n1 int, opts Options) (*TTestResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := requireCases(y, 4); err != nil {
		return nil, err
	}
	n := y.NCases()
	if n1 < 2 || n-n1 < 2 {
		return nil, core.NewDegenerateInputError(fmt.Sprintf("both groups need at least 2 cases; split is %d/%d", n1, n-n1))
	}

	np := y.NPoints()
	df := n - 2
	tmap := tIndMap(y.Data, n, np, n1)

	res := newTTestResult(y, opts, tmap, df, []int{n1, n - n1})
	res.Diff = pointVar(groupMeanDiff(y.Data, n, np, n1), y, res.Name, "mean")

	if opts.Samples == 0 {
		return res, nil
	}
	cluster, err := runClusterT(ctx, y, opts, df, tmap, func(yr *ndvar.NDVar) ([]float64, error) {
		return tIndMap(yr.Data, n, np, n1), nil
	})
	if err != nil {
		return nil, err
	}
	res.Cluster = cluster
	return res, nil
}

// TTestRel tests paired conditions with a related-samples t-test. The cases
// of y hold both conditions concatenated: the first half and the second half
// are matched pairwise in order.
func TTestRel(ctx context.Context, y *ndvar.NDVar, opts Options) (*TTestResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := requireCases(y, 4); err != nil {
		return nil, err
	}
	n := y.NCases()
	if n%2 != 0 {
		return nil, core.NewDegenerateInputError(fmt.Sprintf("paired conditions need an even case count, got %d", n))
	}

	np := y.NPoints()
	pairs := n / 2
	df := pairs - 1
	tmap := tRelMap(y.Data, n, np)

	res := newTTestResult(y, opts, tmap, df, []int{pairs})
	res.Diff = pointVar(groupMeanDiff(y.Data, n, np, pairs), y, res.Name, "mean")

	if opts.Samples == 0 {
		return res, nil
	}
	cluster, err := runClusterT(ctx, y, opts, df, tmap, func(yr *ndvar.NDVar) ([]float64, error) {
		return tRelMap(yr.Data, n, np), nil
	})
	if err != nil {
		return nil, err
	}
	res.Cluster = cluster
	return res, nil
}

func newTTestResult(y *ndvar.NDVar, opts Options, tmap []float64, df int, groups []int) *TTestResult {
	name := opts.name(y)
	pmap := make([]float64, len(tmap))
	for j, t := range tmap {
		pmap[j] = tPValueTwoTailed(t, df)
	}
	return &TTestResult{
		TestID: core.TestID(core.NewID()),
		Name:   name,
		N:      groups,
		Df:     df,
		T:      pointVar(tmap, y, name, "t"),
		P:      pointVar(pmap, y, name, "p"),
	}
}

// runClusterT runs the shared permutation stage for the t-test drivers:
// derive the two-tailed threshold, label the observed map, then feed
// resampled maps until the accumulator finalizes. A zero-cluster observed
// map skips the permutation loop entirely.
func runClusterT(ctx context.Context, y *ndvar.NDVar, opts Options, df int, tmap []float64,
	stat func(*ndvar.NDVar) ([]float64, error)) (*dist.Result, error) {

	tmin := tThreshold(opts.pmin(), df)
	tneg := -tmin
	cd, err := dist.New(y, opts.Samples, &tmin, &tneg, dist.Config{
		TStart: opts.TStart,
		TStop:  opts.TStop,
		Meas:   "t",
		Name:   opts.name(y),
	})
	if err != nil {
		return nil, err
	}
	if err := cd.AddOriginal(tmap); err != nil {
		return nil, err
	}
	if !cd.Finalized() {
		err := opts.Resampler.Resample(ctx, y, opts.Samples, func(yr *ndvar.NDVar) error {
			pm, err := stat(yr)
			if err != nil {
				return err
			}
			return cd.AddPerm(pm)
		})
		if err != nil {
			return nil, err
		}
	}
	return cd.Result()
}

func groupMeanDiff(y []float64, nCases, nPoints, n1 int) []float64 {
	out := make([]float64, nPoints)
	fn1 := float64(n1)
	fn2 := float64(nCases - n1)
	for j := 0; j < nPoints; j++ {
		var sumA, sumB float64
		for i := 0; i < n1; i++ {
			sumA += y[i*nPoints+j]
		}
		for i := n1; i < nCases; i++ {
			sumB += y[i*nPoints+j]
		}
		out[j] = sumA/fn1 - sumB/fn2
	}
	return out
}
