// Package resample provides the permutation schemes behind ports.Resampler:
// case shuffling for between-case designs and sign flipping for
// one-sample/related designs. Both reuse a single buffer across iterations.
package resample

import (
	"context"
	"hash/fnv"
	"math/rand"

	"permcluster/domain/ndvar"
	"permcluster/ports"
)

// RNG implements ports.RNGPort with math/rand sources derived from the
// operation name and seed.
type RNG struct{}

// SeededStream returns a generator that is deterministic in (name, seed).
func (RNG) SeededStream(_ context.Context, name string, seed int64) (*rand.Rand, error) {
	h := fnv.New64a()
	h.Write([]byte(name))
	return rand.New(rand.NewSource(seed ^ int64(h.Sum64()))), nil
}

// CaseShuffle permutes the order of cases. Exchangeable under the null
// hypothesis of independent-samples and correlation tests.
type CaseShuffle struct {
	rng  ports.RNGPort
	seed int64
}

func NewCaseShuffle(rng ports.RNGPort, seed int64) *CaseShuffle {
	return &CaseShuffle{rng: rng, seed: seed}
}

func (s *CaseShuffle) Resample(ctx context.Context, y *ndvar.NDVar, count int, fn func(*ndvar.NDVar) error) error {
	r, err := s.rng.SeededStream(ctx, "case-shuffle", s.seed)
	if err != nil {
		return err
	}
	n := y.NCases()
	np := y.NPoints()
	buf := y.Copy()
	for k := 0; k < count; k++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for dst, src := range r.Perm(n) {
			copy(buf.Data[dst*np:(dst+1)*np], y.Data[src*np:(src+1)*np])
		}
		if err := fn(buf); err != nil {
			return err
		}
	}
	return nil
}

// SignFlip negates each case with probability one half. Exchangeable under
// the null hypothesis of one-sample and related-samples tests, where the
// case rows are (differences of) symmetric deviations around zero.
type SignFlip struct {
	rng  ports.RNGPort
	seed int64
}

func NewSignFlip(rng ports.RNGPort, seed int64) *SignFlip {
	return &SignFlip{rng: rng, seed: seed}
}

func (s *SignFlip) Resample(ctx context.Context, y *ndvar.NDVar, count int, fn func(*ndvar.NDVar) error) error {
	r, err := s.rng.SeededStream(ctx, "sign-flip", s.seed)
	if err != nil {
		return err
	}
	n := y.NCases()
	np := y.NPoints()
	buf := y.Copy()
	for k := 0; k < count; k++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			sign := 1.0
			if r.Intn(2) == 1 {
				sign = -1
			}
			row := y.Data[i*np : (i+1)*np]
			out := buf.Data[i*np : (i+1)*np]
			for j, v := range row {
				out[j] = sign * v
			}
		}
		if err := fn(buf); err != nil {
			return err
		}
	}
	return nil
}
