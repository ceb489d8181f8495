package glm

import (
	"errors"
	"math"
	"testing"

	"permcluster/domain/core"
)

func TestFitterValidation(t *testing.T) {
	if _, err := NewFitter(nil, false); !errors.Is(err, core.ErrDegenerateInput) {
		t.Errorf("no factors: got %v, want ErrDegenerateInput", err)
	}
	_, err := NewFitter([]Factor{{Name: "a", Labels: []string{"x", "x", "x"}}}, false)
	if !errors.Is(err, core.ErrDegenerateInput) {
		t.Errorf("single level: got %v, want ErrDegenerateInput", err)
	}
	// saturated model leaves no error df
	_, err = NewFitter([]Factor{{Name: "a", Labels: []string{"x", "y"}}}, false)
	if !errors.Is(err, core.ErrDegenerateInput) {
		t.Errorf("saturated model: got %v, want ErrDegenerateInput", err)
	}
}

func TestOneFactorFEqualsSquaredT(t *testing.T) {
	// groups [1 2 3] vs [4 5 6]: the independent t is -3/sqrt(2/3),
	// so F must be 13.5
	f, err := NewFitter([]Factor{{Name: "g", Labels: []string{"a", "a", "a", "b", "b", "b"}}}, false)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Effects(); len(got) != 1 || got[0] != "g" {
		t.Fatalf("Effects = %v", got)
	}
	if f.EffectDf("g") != 1 || f.ErrorDf() != 4 {
		t.Errorf("df = %d/%d, want 1/4", f.EffectDf("g"), f.ErrorDf())
	}

	maps, err := f.FMaps([]float64{1, 2, 3, 4, 5, 6}, 6, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := maps["g"][0]; math.Abs(got-13.5) > 1e-9 {
		t.Errorf("F = %g, want 13.5", got)
	}
}

func TestThreeLevelFactor(t *testing.T) {
	labels := []string{"a", "a", "a", "b", "b", "b", "c", "c", "c"}
	f, err := NewFitter([]Factor{{Name: "g", Labels: labels}}, false)
	if err != nil {
		t.Fatal(err)
	}
	if f.EffectDf("g") != 2 || f.ErrorDf() != 6 {
		t.Errorf("df = %d/%d, want 2/6", f.EffectDf("g"), f.ErrorDf())
	}

	// identical groups yield F = 0
	y := []float64{1, 2, 3, 1, 2, 3, 1, 2, 3}
	maps, err := f.FMaps(y, 9, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := maps["g"][0]; math.Abs(got) > 1e-9 {
		t.Errorf("F = %g, want 0 for identical groups", got)
	}

	// separated groups yield a large F
	y = []float64{1, 1, 1, 5, 5, 5.1, 9, 9, 8.9}
	maps, err = f.FMaps(y, 9, 1)
	if err != nil {
		t.Fatal(err)
	}
	if maps["g"][0] < 100 {
		t.Errorf("F = %g, want large for separated groups", maps["g"][0])
	}
}

func TestTwoFactorInteraction(t *testing.T) {
	// balanced 2x2 with 3 cases per cell
	var a, b []string
	for i := 0; i < 12; i++ {
		if i < 6 {
			a = append(a, "a1")
		} else {
			a = append(a, "a2")
		}
		if (i/3)%2 == 0 {
			b = append(b, "b1")
		} else {
			b = append(b, "b2")
		}
	}
	f, err := NewFitter([]Factor{{Name: "A", Labels: a}, {Name: "B", Labels: b}}, true)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"A", "B", "A x B"}
	got := f.Effects()
	if len(got) != 3 {
		t.Fatalf("Effects = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("effect %d = %q, want %q", i, got[i], want[i])
		}
	}
	if f.ErrorDf() != 12-4 {
		t.Errorf("ErrorDf = %d, want 8", f.ErrorDf())
	}

	// crossover pattern: cell means +1/-1/-1/+1 plus small within-cell
	// variation, so the interaction dominates
	y := make([]float64, 12)
	for i := 0; i < 12; i++ {
		ai := 0
		if a[i] == "a2" {
			ai = 1
		}
		bi := 0
		if b[i] == "b2" {
			bi = 1
		}
		if ai == bi {
			y[i] = 1
		} else {
			y[i] = -1
		}
		y[i] += 0.05 * float64(i%3-1)
	}
	maps, err := f.FMaps(y, 12, 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range f.Effects() {
		if v := maps[e][0]; v < 0 || math.IsNaN(v) {
			t.Fatalf("effect %s: invalid F %g", e, v)
		}
	}
	if maps["A x B"][0] < 100 {
		t.Errorf("interaction F = %g, want large", maps["A x B"][0])
	}
}

func TestFMapsShapeValidation(t *testing.T) {
	f, err := NewFitter([]Factor{{Name: "g", Labels: []string{"a", "a", "b", "b", "a", "b"}}}, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.FMaps(make([]float64, 5), 5, 1); !errors.Is(err, core.ErrShapeMismatch) {
		t.Errorf("wrong case count: got %v, want ErrShapeMismatch", err)
	}
	if _, err := f.FMaps(make([]float64, 7), 6, 1); !errors.Is(err, core.ErrShapeMismatch) {
		t.Errorf("wrong element count: got %v, want ErrShapeMismatch", err)
	}
}
