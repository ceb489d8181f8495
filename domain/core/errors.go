package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors
	ErrInvalidThreshold     = errors.New("invalid cluster-forming threshold")
	ErrUnsupportedAdjacency = errors.New("more than one non-adjacent dimension")
	ErrUnsupportedOption    = errors.New("unsupported option")

	// Accumulator usage errors
	ErrDuplicateSubmission = errors.New("original parameter map already added")
	ErrMissingOriginal     = errors.New("original parameter map not added yet")
	ErrTooManyPermutations = errors.New("more permutations added than configured")
	ErrNotFinalized        = errors.New("distribution not finalized yet")

	// Data errors
	ErrEmptyData       = errors.New("empty dependent variable")
	ErrShapeMismatch   = errors.New("parameter map shape mismatch")
	ErrMissingCase     = errors.New("dependent variable needs case dimension")
	ErrDegenerateInput = errors.New("degenerate statistic input")
)

// Error constructors with context
func NewThresholdError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidThreshold, reason)
}

func NewShapeError(want, got int) error {
	return fmt.Errorf("%w: want %d elements, got %d", ErrShapeMismatch, want, got)
}

func NewDegenerateInputError(reason string) error {
	return fmt.Errorf("%w: %s", ErrDegenerateInput, reason)
}

// Error checking helpers
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidThreshold) ||
		errors.Is(err, ErrUnsupportedAdjacency) ||
		errors.Is(err, ErrUnsupportedOption)
}

func IsUsageError(err error) bool {
	return errors.Is(err, ErrDuplicateSubmission) ||
		errors.Is(err, ErrMissingOriginal) ||
		errors.Is(err, ErrTooManyPermutations)
}

func IsDataError(err error) bool {
	return errors.Is(err, ErrEmptyData) ||
		errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrMissingCase) ||
		errors.Is(err, ErrDegenerateInput)
}
