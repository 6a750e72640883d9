package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned for construction-time and configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrOutOfRange is returned when a query or reference id lies outside its sequence.
	ErrOutOfRange = errors.New("id out of range")

	// ErrInvariant is returned when the search reaches an inconsistent state.
	ErrInvariant = errors.New("search invariant violated")

	// ErrArtifact is returned when a persisted artifact is missing or unparseable.
	// It is a configuration error: errors.Is(err, ErrInvalidConfig) holds.
	ErrArtifact = fmt.Errorf("%w: artifact missing or unparseable", ErrInvalidConfig)
)

// Role names the sequence an id belongs to.
type Role string

const (
	// RoleQuery is the live query sequence.
	RoleQuery Role = "query"
	// RoleRef is the reference trajectory.
	RoleRef Role = "ref"
)

// RangeError reports an id outside [0, Size).
type RangeError struct {
	Role Role
	ID   int
	Size int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s id %d out of range [0, %d)", e.Role, e.ID, e.Size)
}

// Unwrap returns ErrOutOfRange.
func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// CheckRange returns a *RangeError if id is not in [0, size).
func CheckRange(role Role, id, size int) error {
	if id < 0 || id >= size {
		return &RangeError{Role: role, ID: id, Size: size}
	}
	return nil
}
