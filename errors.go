package seqloc

import (
	"github.com/hupe1980/seqloc/feature"
	"github.com/hupe1980/seqloc/model"
)

var (
	// ErrInvalidConfig is returned for invalid parameters.
	ErrInvalidConfig = model.ErrInvalidConfig

	// ErrArtifact is returned when a stored artifact is missing or unparseable.
	// It wraps ErrInvalidConfig.
	ErrArtifact = model.ErrArtifact

	// ErrOutOfRange is returned for a query or reference id outside its sequence.
	ErrOutOfRange = model.ErrOutOfRange

	// ErrInvariant is returned when the search reaches an inconsistent state.
	ErrInvariant = model.ErrInvariant

	// ErrKindMismatch is returned when descriptors of different kinds are compared.
	ErrKindMismatch = feature.ErrKindMismatch
)

// RangeError reports an id outside its sequence.
//
// Use errors.As to access the role and the bounds.
type RangeError = model.RangeError
