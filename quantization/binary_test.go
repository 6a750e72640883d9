package quantization

import (
	"testing"

	"github.com/hupe1980/seqloc/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryQuantizer_MinMax(t *testing.T) {
	bq := NewBinaryQuantizer(4)

	// Rescaled levels: 0, 85, 170, 255.
	code, err := bq.Encode([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	require.Len(t, code, 1)

	assert.False(t, Bit(code, 0))
	assert.False(t, Bit(code, 1))
	assert.True(t, Bit(code, 2))
	assert.True(t, Bit(code, 3))
}

func TestBinaryQuantizer_Threshold(t *testing.T) {
	bq := NewBinaryQuantizer(3)

	// Middle value rescales to 127.5 which truncates to the threshold.
	code, err := bq.Encode([]float64{0, 0.5, 1})
	require.NoError(t, err)
	assert.True(t, Bit(code, 1))

	// Just below the midpoint truncates to 126.
	code, err = bq.Encode([]float64{0, 0.496, 1})
	require.NoError(t, err)
	assert.False(t, Bit(code, 1))
}

func TestBinaryQuantizer_ScaleInvariant(t *testing.T) {
	bq := NewBinaryQuantizer(130)
	rng := testutil.NewRNG(7)
	v := rng.UniformVector(130)

	scaled := make([]float64, len(v))
	for i, x := range v {
		scaled[i] = 10*x + 3
	}

	a, err := bq.Encode(v)
	require.NoError(t, err)
	b, err := bq.Encode(scaled)
	require.NoError(t, err)

	require.Len(t, a, 3)
	assert.Equal(t, 0, HammingDistance(a, b))
}

func TestBinaryQuantizer_Constant(t *testing.T) {
	bq := NewBinaryQuantizer(70)
	v := make([]float64, 70)
	for i := range v {
		v[i] = 3
	}

	code, err := bq.Encode(v)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 0}, code)
}

func TestBinaryQuantizer_DimensionMismatch(t *testing.T) {
	bq := NewBinaryQuantizer(4)
	_, err := bq.Encode([]float64{1, 2})
	assert.Error(t, err)
}

func TestHammingDistance(t *testing.T) {
	assert.Equal(t, 0, HammingDistance([]uint64{0xff}, []uint64{0xff}))
	assert.Equal(t, 8, HammingDistance([]uint64{0xff}, []uint64{0}))
	assert.Equal(t, 64+1, HammingDistance([]uint64{^uint64(0), 1}, []uint64{0, 0}))
	assert.Equal(t, 1, HammingDistance([]uint64{1, 5}, []uint64{0}))
}
