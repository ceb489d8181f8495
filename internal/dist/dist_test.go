package dist

import (
	"errors"
	"math"
	"testing"

	"permcluster/domain/core"
	"permcluster/domain/ndvar"
)

func f64(v float64) *float64 { return &v }

// caseTimeVar builds a zeroed dependent variable with nCases cases over nt
// time samples (tmin 0, tstep 0.1).
func caseTimeVar(t *testing.T, nCases, nt int) *ndvar.NDVar {
	t.Helper()
	y, err := ndvar.New(make([]float64, nCases*nt),
		[]ndvar.Dim{ndvar.Case{NCases: nCases}, ndvar.Time{TMin: 0, TStep: 0.1, NSamples: nt}}, "y")
	if err != nil {
		t.Fatal(err)
	}
	return y
}

// pulse returns an nt-long map with value v at the given indices.
func pulse(nt int, v float64, idx ...int) []float64 {
	m := make([]float64, nt)
	for _, i := range idx {
		m[i] = v
	}
	return m
}

func TestThresholdValidation(t *testing.T) {
	y := caseTimeVar(t, 4, 10)
	tests := []struct {
		name           string
		tUpper, tLower *float64
	}{
		{"both nil", nil, nil},
		{"upper not positive", f64(-1), nil},
		{"lower not negative", nil, f64(1)},
		{"asymmetric pair", f64(2), f64(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(y, 10, tt.tUpper, tt.tLower, Config{})
			if !errors.Is(err, core.ErrInvalidThreshold) {
				t.Errorf("got %v, want ErrInvalidThreshold", err)
			}
		})
	}
}

func TestCloseTimeUnsupported(t *testing.T) {
	y := caseTimeVar(t, 4, 10)
	_, err := New(y, 10, f64(1), f64(-1), Config{CloseTime: 0.02})
	if !errors.Is(err, core.ErrUnsupportedOption) {
		t.Errorf("got %v, want ErrUnsupportedOption", err)
	}
}

func TestLifecycleErrors(t *testing.T) {
	y := caseTimeVar(t, 4, 10)
	d, err := New(y, 2, f64(1), f64(-1), Config{})
	if err != nil {
		t.Fatal(err)
	}

	if err := d.AddPerm(pulse(10, 2, 0)); !errors.Is(err, core.ErrMissingOriginal) {
		t.Errorf("AddPerm before AddOriginal: got %v, want ErrMissingOriginal", err)
	}
	if _, err := d.Result(); !errors.Is(err, core.ErrNotFinalized) {
		t.Errorf("Result before finalize: got %v, want ErrNotFinalized", err)
	}

	if err := d.AddOriginal(pulse(10, 2, 3, 4)); err != nil {
		t.Fatal(err)
	}
	if err := d.AddOriginal(pulse(10, 2, 3, 4)); !errors.Is(err, core.ErrDuplicateSubmission) {
		t.Errorf("second AddOriginal: got %v, want ErrDuplicateSubmission", err)
	}

	if err := d.AddPerm(pulse(10, 0)); err != nil {
		t.Fatal(err)
	}
	if err := d.AddPerm(pulse(10, 0)); err != nil {
		t.Fatal(err)
	}
	if !d.Finalized() {
		t.Fatal("accumulator should finalize after the configured permutations")
	}
	if err := d.AddPerm(pulse(10, 0)); !errors.Is(err, core.ErrTooManyPermutations) {
		t.Errorf("extra AddPerm: got %v, want ErrTooManyPermutations", err)
	}
}

func TestShapeMismatch(t *testing.T) {
	y := caseTimeVar(t, 4, 10)
	d, _ := New(y, 2, f64(1), f64(-1), Config{})
	if err := d.AddOriginal(make([]float64, 7)); !errors.Is(err, core.ErrShapeMismatch) {
		t.Errorf("got %v, want ErrShapeMismatch", err)
	}
}

func TestZeroClusterFastPath(t *testing.T) {
	y := caseTimeVar(t, 4, 10)
	d, _ := New(y, 100, f64(1), f64(-1), Config{})

	if err := d.AddOriginal(pulse(10, 0.5, 2, 3)); err != nil {
		t.Fatal(err)
	}
	if !d.Finalized() {
		t.Fatal("zero clusters must finalize immediately")
	}
	res, err := d.Result()
	if err != nil {
		t.Fatal(err)
	}
	if res.NClusters != 0 || len(res.Clusters) != 0 {
		t.Errorf("NClusters = %d, want 0", res.NClusters)
	}
	for i, p := range res.ProbMap.Data {
		if p != 1 {
			t.Fatalf("ProbMap[%d] = %g, want 1", i, p)
		}
	}
	if err := d.AddPerm(pulse(10, 0)); !errors.Is(err, core.ErrTooManyPermutations) {
		t.Errorf("AddPerm after fast path: got %v, want ErrTooManyPermutations", err)
	}
}

func TestPValueFromNullDistribution(t *testing.T) {
	y := caseTimeVar(t, 4, 10)
	d, _ := New(y, 4, f64(1), f64(-1), Config{Meas: "t"})

	// one observed cluster of mass 4
	if err := d.AddOriginal(pulse(10, 2, 3, 4)); err != nil {
		t.Fatal(err)
	}

	// null distribution {3, 5, 0, 1.5}; negative masses count by magnitude
	for _, m := range [][]float64{
		pulse(10, 3, 0),
		pulse(10, -5, 0),
		pulse(10, 0.5, 0), // no exceedance, slot stays 0
		pulse(10, 1.5, 0),
	} {
		if err := d.AddPerm(m); err != nil {
			t.Fatal(err)
		}
	}

	res, err := d.Result()
	if err != nil {
		t.Fatal(err)
	}
	if res.NClusters != 1 {
		t.Fatalf("NClusters = %d, want 1", res.NClusters)
	}
	c := res.Clusters[0]
	if c.V != 4 {
		t.Errorf("cluster mass = %g, want 4", c.V)
	}
	// 3 of 4 null values below 4, none equal: p = 1 - 6/8
	if math.Abs(c.P-0.25) > 1e-12 {
		t.Errorf("p = %g, want 0.25", c.P)
	}
}

func TestPValueMeanTieHandling(t *testing.T) {
	y := caseTimeVar(t, 4, 10)
	d, _ := New(y, 4, f64(1), f64(-1), Config{})

	if err := d.AddOriginal(pulse(10, 2, 3, 4)); err != nil { // mass 4
		t.Fatal(err)
	}
	// null distribution {4, 4, 2, 0}: ties count half below, half above
	for _, m := range [][]float64{
		pulse(10, 2, 0, 1),
		pulse(10, 2, 5, 6),
		pulse(10, 2, 8),
		pulse(10, 0),
	} {
		if err := d.AddPerm(m); err != nil {
			t.Fatal(err)
		}
	}
	res, _ := d.Result()
	// below = 2, belowOrEqual = 4: p = 1 - 6/8
	if math.Abs(res.Clusters[0].P-0.25) > 1e-12 {
		t.Errorf("p = %g, want 0.25", res.Clusters[0].P)
	}
}

func TestPValueMonotonicity(t *testing.T) {
	// same observed cluster against null distributions differing in a
	// single value: a more extreme null value never lowers p, a less
	// extreme one never raises it
	pFor := func(masses []float64) float64 {
		t.Helper()
		y := caseTimeVar(t, 4, 10)
		d, _ := New(y, len(masses), f64(1), f64(-1), Config{})
		if err := d.AddOriginal(pulse(10, 2, 3, 4)); err != nil { // mass 4
			t.Fatal(err)
		}
		for _, m := range masses {
			if err := d.AddPerm(pulse(10, m, 0)); err != nil {
				t.Fatal(err)
			}
		}
		res, err := d.Result()
		if err != nil {
			t.Fatal(err)
		}
		return res.Clusters[0].P
	}

	base := pFor([]float64{3, 5, 0, 1.5})
	moreExtreme := pFor([]float64{3, 5, 0, 4.5}) // 1.5 raised past the observed mass
	lessExtreme := pFor([]float64{3, 0.5, 0, 1.5})
	if moreExtreme <= base {
		t.Errorf("raising a null value lowered p: %g -> %g", base, moreExtreme)
	}
	if lessExtreme >= base {
		t.Errorf("lowering a null value raised p: %g -> %g", base, lessExtreme)
	}
}

func TestClustersSortedByP(t *testing.T) {
	y := caseTimeVar(t, 4, 10)
	d, _ := New(y, 4, f64(1), f64(-1), Config{})

	// two clusters: mass 2 at [0,1), mass 6 at [5,8)
	orig := pulse(10, 2, 0)
	for _, i := range []int{5, 6, 7} {
		orig[i] = 2
	}
	if err := d.AddOriginal(orig); err != nil {
		t.Fatal(err)
	}
	for _, m := range [][]float64{
		pulse(10, 3, 0),
		pulse(10, 4, 0),
		pulse(10, 5, 0),
		pulse(10, 0),
	} {
		if err := d.AddPerm(m); err != nil {
			t.Fatal(err)
		}
	}
	res, _ := d.Result()
	if res.NClusters != 2 {
		t.Fatalf("NClusters = %d, want 2", res.NClusters)
	}
	if res.Clusters[0].V != 6 || res.Clusters[1].V != 2 {
		t.Errorf("clusters not sorted by p: masses %g, %g", res.Clusters[0].V, res.Clusters[1].V)
	}
	if res.Clusters[0].P >= res.Clusters[1].P {
		t.Errorf("p values not ascending: %g, %g", res.Clusters[0].P, res.Clusters[1].P)
	}
}

func TestClusterTimeBounds(t *testing.T) {
	y := caseTimeVar(t, 4, 10)
	d, _ := New(y, 1, f64(1), f64(-1), Config{})

	if err := d.AddOriginal(pulse(10, 2, 2, 3)); err != nil {
		t.Fatal(err)
	}
	if err := d.AddPerm(pulse(10, 0)); err != nil {
		t.Fatal(err)
	}
	res, _ := d.Result()
	c := res.Clusters[0]
	if c.TStart == nil || math.Abs(*c.TStart-0.2) > 1e-9 {
		t.Errorf("TStart = %v, want 0.2", c.TStart)
	}
	// exclusive stop: first sample after the cluster
	if c.TStop == nil || math.Abs(*c.TStop-0.4) > 1e-9 {
		t.Errorf("TStop = %v, want 0.4", c.TStop)
	}
}

func TestClusterAtEpochEndTStop(t *testing.T) {
	y := caseTimeVar(t, 4, 10)
	d, _ := New(y, 1, f64(1), f64(-1), Config{})

	if err := d.AddOriginal(pulse(10, 2, 8, 9)); err != nil {
		t.Fatal(err)
	}
	if err := d.AddPerm(pulse(10, 0)); err != nil {
		t.Fatal(err)
	}
	res, _ := d.Result()
	c := res.Clusters[0]
	// last sample at 0.9, stop extends one step past it
	if c.TStop == nil || math.Abs(*c.TStop-1.0) > 1e-9 {
		t.Errorf("TStop = %v, want 1.0", c.TStop)
	}
}

func TestTimeWindowCropping(t *testing.T) {
	y := caseTimeVar(t, 4, 10)
	tstart := 0.2
	tstop := 0.8
	d, err := New(y, 1, f64(1), f64(-1), Config{TStart: &tstart, TStop: &tstop})
	if err != nil {
		t.Fatal(err)
	}

	// exceedance at index 0 lies outside the window and must be ignored
	orig := pulse(10, 2, 0, 3, 4)
	if err := d.AddOriginal(orig); err != nil {
		t.Fatal(err)
	}
	if d.NClusters() != 1 {
		t.Fatalf("NClusters = %d, want 1 (outside-window activity ignored)", d.NClusters())
	}
	if err := d.AddPerm(pulse(10, 0)); err != nil {
		t.Fatal(err)
	}
	res, _ := d.Result()

	// maps are uncropped back to the full epoch
	if got := len(res.ProbMap.Data); got != 10 {
		t.Fatalf("ProbMap length = %d, want 10", got)
	}
	if res.ProbMap.Data[0] != 1 {
		t.Error("outside-window position should carry background p = 1")
	}
	if res.ProbMap.Data[3] == 1 {
		t.Error("cluster member should carry its cluster p")
	}
	c := res.Clusters[0]
	if c.TStart == nil || math.Abs(*c.TStart-0.3) > 1e-9 {
		t.Errorf("TStart = %v, want 0.3", c.TStart)
	}
	if got := len(c.Map.Data); got != 10 {
		t.Errorf("cluster map length = %d, want 10", got)
	}
	if c.Map.Data[0] != 0 {
		t.Error("cluster map outside the window must be 0")
	}
}

func TestStatMapPreserved(t *testing.T) {
	y := caseTimeVar(t, 4, 10)
	d, _ := New(y, 1, f64(1), f64(-1), Config{Meas: "t"})
	orig := pulse(10, 2, 3, 4)
	orig[0] = 0.7 // sub-threshold values survive in the stat map
	if err := d.AddOriginal(orig); err != nil {
		t.Fatal(err)
	}
	if err := d.AddPerm(pulse(10, 0)); err != nil {
		t.Fatal(err)
	}
	res, _ := d.Result()
	if res.StatMap.Data[0] != 0.7 || res.StatMap.Data[3] != 2 {
		t.Errorf("stat map altered: %v", res.StatMap.Data)
	}
	if res.StatMap.Info["meas"] != "t" {
		t.Errorf("meas = %q, want t", res.StatMap.Info["meas"])
	}
}

func TestStoredConversion(t *testing.T) {
	y := caseTimeVar(t, 4, 10)
	d, _ := New(y, 1, f64(1), f64(-1), Config{Name: "demo", Meas: "t"})
	if err := d.AddOriginal(pulse(10, 2, 2, 3)); err != nil {
		t.Fatal(err)
	}
	if err := d.AddPerm(pulse(10, 0)); err != nil {
		t.Fatal(err)
	}
	res, _ := d.Result()
	stored := res.Stored()
	if stored.Name != "demo" || stored.Meas != "t" || stored.Samples != 1 {
		t.Errorf("unexpected stored metadata: %+v", stored)
	}
	if len(stored.Clusters) != 1 || stored.Clusters[0].Rank != 0 {
		t.Errorf("unexpected stored clusters: %+v", stored.Clusters)
	}
	if stored.RunID == "" {
		t.Error("stored result needs a run id")
	}
}
