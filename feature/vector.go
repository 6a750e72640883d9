package feature

import (
	"gonum.org/v1/gonum/floats"
)

// Vector is a dense global image descriptor.
type Vector struct {
	values []float64
	norm   float64
}

// NewVector wraps values. The slice is retained.
func NewVector(values []float64) *Vector {
	return &Vector{values: values, norm: floats.Norm(values, 2)}
}

// Kind returns KindVector.
func (v *Vector) Kind() Kind { return KindVector }

// Values returns the descriptor values.
func (v *Vector) Values() []float64 { return v.values }

// Dim returns the descriptor dimension.
func (v *Vector) Dim() int { return len(v.values) }

// CosineSimilarity returns a.b/(|a||b|), or 0 when either vector has zero norm.
func CosineSimilarity(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	return cosine(a, b, na, nb)
}

func cosine(a, b []float64, na, nb float64) float64 {
	if na < MinSimilarity || nb < MinSimilarity {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// CosineDistance returns 1 - cos(a, b), or 0 when either vector has zero norm.
func CosineDistance(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na < MinSimilarity || nb < MinSimilarity {
		return 0
	}
	return 1 - floats.Dot(a, b)/(na*nb)
}

// VectorComparator compares Vector descriptors by cosine similarity.
// Costs are the reciprocal of the similarity.
type VectorComparator struct{}

// Similarity returns the cosine similarity of two vectors of equal dimension.
func (VectorComparator) Similarity(a, b Feature) (float64, error) {
	va, ok := a.(*Vector)
	if !ok {
		return 0, mismatch(a, b)
	}
	vb, ok := b.(*Vector)
	if !ok {
		return 0, mismatch(a, b)
	}
	if va.Dim() != vb.Dim() {
		return 0, &DimensionError{Expected: va.Dim(), Actual: vb.Dim()}
	}
	return cosine(va.values, vb.values, va.norm, vb.norm), nil
}

// ToCost returns ScoreToCost(s).
func (VectorComparator) ToCost(s float64) float64 {
	return ScoreToCost(s)
}
