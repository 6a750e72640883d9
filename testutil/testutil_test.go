package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UniformVectors(8, 32)

	assert.Equal(t, 8, len(v))
	assert.Equal(t, 32, len(v[0]))
	assert.Less(t, v[0][0], 1.0)
	assert.GreaterOrEqual(t, v[1][0], 0.0)
}

func TestUnitVectors(t *testing.T) {
	rng := NewRNG(4711)

	for _, vec := range rng.UnitVectors(8, 32) {
		var sum float64
		for _, val := range vec {
			sum += val * val
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestDeterministic(t *testing.T) {
	a := NewRNG(1).UniformVector(16)
	b := NewRNG(1).UniformVector(16)
	assert.Equal(t, a, b)

	rng := NewRNG(1)
	first := rng.UniformVector(16)
	rng.Reset()
	assert.Equal(t, first, rng.UniformVector(16))
}

func TestTrajectory(t *testing.T) {
	refs, queries := NewRNG(3).Trajectory(5, 8, 0)
	require.Len(t, refs, 5)
	require.Len(t, queries, 5)
	assert.Equal(t, refs[2], queries[2])
}

func TestShiftColumns(t *testing.T) {
	grid := []float64{
		1, 2, 3,
		4, 5, 6,
	}
	assert.Equal(t, []float64{3, 1, 2, 6, 4, 5}, ShiftColumns(grid, 2, 3, 1))
}

func TestComputeRecall(t *testing.T) {
	assert.Equal(t, 1.0, ComputeRecall(nil, nil))
	assert.Equal(t, 0.5, ComputeRecall([]int{1, 2}, []int{2, 9}))
}
