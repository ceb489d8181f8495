// Package glm fits fixed-effects linear models to NDVar data and derives
// per-effect F statistics through full-versus-reduced model comparison. It
// implements ports.ModelFitter for the ANOVA driver.
package glm

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"permcluster/domain/core"
)

// Factor is one categorical predictor with a label per case.
type Factor struct {
	Name   string
	Labels []string
}

type design struct {
	name string
	df   int
	x    *mat.Dense
	qr   *mat.QR
}

// Fitter holds the factorized design matrices of a model. Construction does
// all the decomposition work; FMaps then only solves and accumulates.
type Fitter struct {
	n       int
	effects []string
	effDf   map[string]int
	errDf   int

	full    design
	reduced map[string]design
}

// NewFitter builds the model over the given factors. With interactions true
// every pairwise interaction joins the model. Dummy coding against the last
// level of each factor; intercept always included.
func NewFitter(factors []Factor, interactions bool) (*Fitter, error) {
	if len(factors) == 0 {
		return nil, core.NewDegenerateInputError("model needs at least one factor")
	}
	n := len(factors[0].Labels)
	if n == 0 {
		return nil, core.ErrEmptyData
	}

	type block struct {
		name string
		cols [][]float64
	}
	var blocks []block

	for _, f := range factors {
		if len(f.Labels) != n {
			return nil, core.NewShapeError(n, len(f.Labels))
		}
		cols, err := dummyCode(f)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block{name: f.Name, cols: cols})
	}
	if interactions {
		nf := len(factors)
		for a := 0; a < nf; a++ {
			for b := a + 1; b < nf; b++ {
				var cols [][]float64
				for _, ca := range blocks[a].cols {
					for _, cb := range blocks[b].cols {
						col := make([]float64, n)
						for i := range col {
							col[i] = ca[i] * cb[i]
						}
						cols = append(cols, col)
					}
				}
				name := blocks[a].name + " x " + blocks[b].name
				blocks = append(blocks, block{name: name, cols: cols})
			}
		}
	}

	pFull := 1
	for _, b := range blocks {
		pFull += len(b.cols)
	}
	errDf := n - pFull
	if errDf <= 0 {
		return nil, core.NewDegenerateInputError(
			fmt.Sprintf("model has %d parameters for %d cases", pFull, n))
	}

	f := &Fitter{
		n:       n,
		effDf:   make(map[string]int, len(blocks)),
		errDf:   errDf,
		reduced: make(map[string]design, len(blocks)),
	}

	assemble := func(skip string) *mat.Dense {
		var cols [][]float64
		ones := make([]float64, n)
		for i := range ones {
			ones[i] = 1
		}
		cols = append(cols, ones)
		for _, b := range blocks {
			if b.name == skip {
				continue
			}
			cols = append(cols, b.cols...)
		}
		x := mat.NewDense(n, len(cols), nil)
		for j, c := range cols {
			x.SetCol(j, c)
		}
		return x
	}

	factorize := func(name string, df int, x *mat.Dense) design {
		qr := new(mat.QR)
		qr.Factorize(x)
		return design{name: name, df: df, x: x, qr: qr}
	}

	f.full = factorize("", 0, assemble(""))
	for _, b := range blocks {
		f.effects = append(f.effects, b.name)
		f.effDf[b.name] = len(b.cols)
		f.reduced[b.name] = factorize(b.name, len(b.cols), assemble(b.name))
	}
	return f, nil
}

func dummyCode(f Factor) ([][]float64, error) {
	var order []string
	seen := map[string]bool{}
	for _, lb := range f.Labels {
		if !seen[lb] {
			seen[lb] = true
			order = append(order, lb)
		}
	}
	if len(order) < 2 {
		return nil, core.NewDegenerateInputError(
			fmt.Sprintf("factor %q has %d level(s): %s", f.Name, len(order), strings.Join(order, ", ")))
	}
	// The last level in appearance order is the reference level.
	cols := make([][]float64, len(order)-1)
	for k := range cols {
		col := make([]float64, len(f.Labels))
		for i, lb := range f.Labels {
			if lb == order[k] {
				col[i] = 1
			}
		}
		cols[k] = col
	}
	return cols, nil
}

// Effects returns the effect names in model order (main effects first, then
// interactions).
func (f *Fitter) Effects() []string { return f.effects }

// EffectDf returns the numerator degrees of freedom of an effect, 0 for an
// unknown name.
func (f *Fitter) EffectDf(name string) int { return f.effDf[name] }

// ErrorDf returns the residual degrees of freedom.
func (f *Fitter) ErrorDf() int { return f.errDf }

// FMaps solves the full and each reduced model against all point columns of
// y at once and converts the residual sum-of-squares differences to F values.
func (f *Fitter) FMaps(y []float64, nCases, nPoints int) (map[string][]float64, error) {
	if nCases != f.n {
		return nil, core.NewShapeError(f.n, nCases)
	}
	if len(y) != nCases*nPoints {
		return nil, core.NewShapeError(nCases*nPoints, len(y))
	}
	ymat := mat.NewDense(nCases, nPoints, y)

	rssFull, err := residualSS(f.full, ymat, nPoints)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]float64, len(f.effects))
	dfErr := float64(f.errDf)
	for _, e := range f.effects {
		rssRed, err := residualSS(f.reduced[e], ymat, nPoints)
		if err != nil {
			return nil, err
		}
		dfE := float64(f.effDf[e])
		fm := make([]float64, nPoints)
		for j := range fm {
			fm[j] = ((rssRed[j] - rssFull[j]) / dfE) / (rssFull[j] / dfErr)
		}
		out[e] = fm
	}
	return out, nil
}

func residualSS(d design, y *mat.Dense, nPoints int) ([]float64, error) {
	var beta mat.Dense
	if err := d.qr.SolveTo(&beta, false, y); err != nil {
		return nil, fmt.Errorf("%w: design matrix is rank deficient: %v", core.ErrDegenerateInput, err)
	}
	var fit mat.Dense
	fit.Mul(d.x, &beta)

	n, _ := d.x.Dims()
	out := make([]float64, nPoints)
	for j := 0; j < nPoints; j++ {
		var ss float64
		for i := 0; i < n; i++ {
			r := y.At(i, j) - fit.At(i, j)
			ss += r * r
		}
		out[j] = ss
	}
	return out, nil
}
