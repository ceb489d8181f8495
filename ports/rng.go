package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic
// permutation runs.
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a
	// named operation. The same (name, seed) pair always yields the same
	// stream so permutation results are reproducible.
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)
}
