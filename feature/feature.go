package feature

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Kind names a descriptor type.
type Kind string

const (
	// KindVector is a dense global descriptor.
	KindVector Kind = "vector"
	// KindScanContext is a rotation-shifted polar grid descriptor.
	KindScanContext Kind = "scan-context"
)

// ErrKindMismatch is returned when descriptors of different kinds are compared.
var ErrKindMismatch = errors.New("feature kind mismatch")

// Feature is an opaque place descriptor.
type Feature interface {
	Kind() Kind
}

// Comparator compares two descriptors and converts the result into a cost.
type Comparator interface {
	// Similarity compares a and b. Descriptors of different kinds fail with ErrKindMismatch.
	Similarity(a, b Feature) (float64, error)
	// ToCost converts a similarity into a non-negative cost where lower is better.
	ToCost(similarity float64) float64
}

// Loader loads a descriptor by name.
type Loader interface {
	Load(ctx context.Context, name string) (Feature, error)
}

// MinSimilarity is the smallest similarity that converts to a finite cost.
const MinSimilarity = 1e-9

// ScoreToCost returns 1/s, or math.MaxFloat64 when s is below MinSimilarity.
func ScoreToCost(s float64) float64 {
	if s < MinSimilarity {
		return math.MaxFloat64
	}
	return 1 / s
}

func mismatch(a, b Feature) error {
	return fmt.Errorf("%w: %s vs %s", ErrKindMismatch, kindOf(a), kindOf(b))
}

func kindOf(f Feature) Kind {
	if f == nil {
		return "nil"
	}
	return f.Kind()
}
