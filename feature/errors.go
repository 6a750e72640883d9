package feature

import "fmt"

// DimensionError indicates descriptors of different dimension.
type DimensionError struct {
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Unwrap makes DimensionError match ErrKindMismatch.
func (e *DimensionError) Unwrap() error { return ErrKindMismatch }
