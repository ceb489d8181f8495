package ports

import (
	"context"

	"permcluster/domain/ndvar"
)

// Resampler produces resampled copies of a dependent variable for the
// permutation loop. The enumeration policy (case reordering, sign flips,
// bootstrap) lives behind this interface; the statistical core only consumes
// one copy at a time.
//
// Implementations may reuse the NDVar passed to fn between iterations; fn
// must not retain it. Returning an error from fn aborts the loop.
type Resampler interface {
	Resample(ctx context.Context, y *ndvar.NDVar, count int, fn func(*ndvar.NDVar) error) error
}
