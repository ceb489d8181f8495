// Package testkit generates deterministic synthetic NDVar data for tests and
// the demo command.
package testkit

import (
	"math/rand"

	"permcluster/domain/ndvar"
)

// Noise returns an NDVar of seeded standard normal noise over dims.
func Noise(seed int64, name string, dims ...ndvar.Dim) (*ndvar.NDVar, error) {
	n := 1
	for _, d := range dims {
		n *= d.Len()
	}
	r := rand.New(rand.NewSource(seed))
	data := make([]float64, n)
	for i := range data {
		data[i] = r.NormFloat64()
	}
	return ndvar.New(data, dims, name)
}

// InjectEffect adds amplitude to the selected points of every case (or of
// the whole array when there is no case dimension). sel receives the flat
// point index.
func InjectEffect(y *ndvar.NDVar, amplitude float64, sel func(point int) bool) {
	np := y.NPoints()
	nc := y.NCases()
	if nc == 0 {
		nc = 1
	}
	for i := 0; i < nc; i++ {
		for j := 0; j < np; j++ {
			if sel(j) {
				y.Data[i*np+j] += amplitude
			}
		}
	}
}

// InjectEffectCases adds amplitude to the selected points of the cases in
// the half-open range [from, to).
func InjectEffectCases(y *ndvar.NDVar, amplitude float64, from, to int, sel func(point int) bool) {
	np := y.NPoints()
	for i := from; i < to; i++ {
		for j := 0; j < np; j++ {
			if sel(j) {
				y.Data[i*np+j] += amplitude
			}
		}
	}
}
