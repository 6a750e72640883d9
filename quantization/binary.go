package quantization

import (
	"fmt"
	"math/bits"
)

const (
	// DefaultLevels is the upper bound of the rescaled value range.
	DefaultLevels = 255
	// DefaultThreshold is the level at and above which a dimension becomes a 1 bit.
	DefaultThreshold = DefaultLevels / 2
)

// BinaryQuantizer implements per-vector min-max binarization (1 bit per dimension).
//
// Unlike a global threshold, the threshold is relative to each vector's own
// value range, so descriptors with different magnitudes produce comparable codes.
// A constant vector has no range and encodes to all zero bits.
type BinaryQuantizer struct {
	dimension int
	levels    float64
	threshold int
}

// NewBinaryQuantizer creates a binary quantizer for vectors of the given dimension.
func NewBinaryQuantizer(dimension int) *BinaryQuantizer {
	return &BinaryQuantizer{
		dimension: dimension,
		levels:    DefaultLevels,
		threshold: DefaultThreshold,
	}
}

// Dimension returns the expected vector dimension.
func (bq *BinaryQuantizer) Dimension() int {
	return bq.dimension
}

// Words returns the number of uint64 words of an encoded vector.
func (bq *BinaryQuantizer) Words() int {
	return (bq.dimension + 63) / 64
}

// Encode quantizes v into packed uint64 words.
func (bq *BinaryQuantizer) Encode(v []float64) ([]uint64, error) {
	if len(v) != bq.dimension {
		return nil, fmt.Errorf("binary quantizer: dimension mismatch: expected %d, got %d", bq.dimension, len(v))
	}
	result := make([]uint64, bq.Words())
	if len(v) == 0 {
		return result, nil
	}

	lo, hi := v[0], v[0]
	for _, x := range v[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	if hi == lo {
		return result, nil
	}

	scale := bq.levels / (hi - lo)
	for i, x := range v {
		if int((x-lo)*scale) >= bq.threshold {
			result[i/64] |= 1 << (i % 64)
		}
	}
	return result, nil
}

// Bit reports whether bit i of code is set.
func Bit(code []uint64, i int) bool {
	return code[i/64]&(1<<(i%64)) != 0
}

// HammingDistance computes the number of differing bits between two codes.
// Codes of different length are compared over the shorter one.
func HammingDistance(a, b []uint64) int {
	if len(a) > len(b) {
		a = a[:len(b)]
	} else {
		b = b[:len(a)]
	}

	var dist int
	for i := range a {
		dist += bits.OnesCount64(a[i] ^ b[i])
	}
	return dist
}

// Binarize encodes v with a quantizer sized to len(v).
func Binarize(v []float64) []uint64 {
	code, _ := NewBinaryQuantizer(len(v)).Encode(v)
	return code
}
