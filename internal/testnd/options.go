// Package testnd implements the statistic drivers: mass-univariate t-tests,
// correlation and ANOVA over NDVar data, each optionally followed by a
// cluster-based permutation test.
package testnd

import (
	"fmt"

	"permcluster/domain/core"
	"permcluster/domain/ndvar"
	"permcluster/ports"
)

// DefaultPMin is the cluster-forming threshold used when Options.PMin is 0.
const DefaultPMin = 0.1

// Options configures the permutation stage shared by all drivers.
type Options struct {
	// Samples is the number of permutations. 0 skips the cluster test and
	// returns only the parametric maps.
	Samples int
	// PMin is the uncorrected probability used to derive the
	// cluster-forming statistic threshold. Defaults to DefaultPMin.
	PMin float64
	// TStart/TStop restrict cluster finding to a time window.
	TStart, TStop *float64
	// Resampler drives the permutation loop. Required when Samples > 0.
	Resampler ports.Resampler
	// Name labels the comparison in reports. Defaults to the variable name.
	Name string
}

func (o Options) pmin() float64 {
	if o.PMin == 0 {
		return DefaultPMin
	}
	return o.PMin
}

func (o Options) name(y *ndvar.NDVar) string {
	if o.Name != "" {
		return o.Name
	}
	return y.VarName
}

func (o Options) validate() error {
	if o.Samples < 0 {
		return fmt.Errorf("samples must be >= 0, got %d", o.Samples)
	}
	if o.PMin < 0 || o.PMin >= 1 {
		return core.NewThresholdError(fmt.Sprintf("pmin must be in (0, 1); is %g", o.PMin))
	}
	if o.Samples > 0 && o.Resampler == nil {
		return fmt.Errorf("%w: resampler required for permutation test", core.ErrUnsupportedOption)
	}
	return nil
}

func requireCases(y *ndvar.NDVar, min int) error {
	if y == nil || len(y.Data) == 0 {
		return core.ErrEmptyData
	}
	if !y.HasCase() {
		return core.ErrMissingCase
	}
	if y.NCases() < min {
		return core.NewDegenerateInputError(fmt.Sprintf("need at least %d cases, got %d", min, y.NCases()))
	}
	return nil
}

func pointVar(data []float64, y *ndvar.NDVar, name, meas string) *ndvar.NDVar {
	v, err := ndvar.New(data, y.PointDims(), name)
	if err != nil {
		// Point shapes are taken from y itself; a mismatch is a bug.
		panic(err)
	}
	v.Info["meas"] = meas
	return v
}
