package hnsw

import (
	"testing"

	"github.com/hupe1980/seqloc/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(items []Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Node
	}
	return out
}

func TestHNSW_Recall(t *testing.T) {
	rng := testutil.NewRNG(4711)
	vectors := rng.UniformVectors(500, 16)

	h, err := New(16, func(o *Options) {
		o.M = 12
		o.EF = 100
	})
	require.NoError(t, err)

	for i, v := range vectors {
		id, err := h.Insert(v)
		require.NoError(t, err)
		assert.Equal(t, i, id)
	}
	assert.Equal(t, 500, h.Len())

	var truth, approx []int
	for _, q := range rng.UniformVectors(20, 16) {
		exact, err := h.BruteSearch(q, 10)
		require.NoError(t, err)
		got, err := h.KNNSearch(q, 10, 100)
		require.NoError(t, err)
		require.Len(t, got, 10)

		truth = append(truth, ids(exact)...)
		approx = append(approx, ids(got)...)
	}
	assert.GreaterOrEqual(t, testutil.ComputeRecall(truth, approx), 0.9)
}

func TestHNSW_SelfQuery(t *testing.T) {
	rng := testutil.NewRNG(1)
	h, err := New(8, func(o *Options) { o.Heuristic = false })
	require.NoError(t, err)

	vectors := rng.UnitVectors(50, 8)
	for _, v := range vectors {
		_, err := h.Insert(v)
		require.NoError(t, err)
	}

	got, err := h.KNNSearch(vectors[23], 1, 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 23, got[0].Node)
	assert.InDelta(t, 0.0, got[0].Distance, 1e-9)
}

func TestHNSW_Deterministic(t *testing.T) {
	vectors := testutil.NewRNG(9).UniformVectors(100, 4)

	build := func() *HNSW {
		h, err := New(4, func(o *Options) { o.Seed = 77 })
		require.NoError(t, err)
		for _, v := range vectors {
			_, err := h.Insert(v)
			require.NoError(t, err)
		}
		return h
	}

	a, b := build(), build()
	assert.Equal(t, a.Stats(), b.Stats())

	q := []float64{0.3, 0.1, 0.9, 0.5}
	ra, err := a.KNNSearch(q, 5, 20)
	require.NoError(t, err)
	rb, err := b.KNNSearch(q, 5, 20)
	require.NoError(t, err)
	assert.Equal(t, ra, rb)
}

func TestHNSW_Empty(t *testing.T) {
	h, err := New(3)
	require.NoError(t, err)

	got, err := h.KNNSearch([]float64{1, 0, 0}, 3, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	s := h.Stats()
	assert.Equal(t, 0, s.Nodes)
}

func TestHNSW_DimensionMismatch(t *testing.T) {
	h, err := New(3)
	require.NoError(t, err)

	_, err = h.Insert([]float64{1, 2})
	var dimErr *ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Actual)

	_, err = h.KNNSearch([]float64{1}, 1, 1)
	assert.Error(t, err)

	_, err = New(0)
	assert.Error(t, err)
}

func TestHNSW_Stats(t *testing.T) {
	h, err := New(2, func(o *Options) { o.M = 4 })
	require.NoError(t, err)
	for _, v := range testutil.NewRNG(2).UniformVectors(64, 2) {
		_, err := h.Insert(v)
		require.NoError(t, err)
	}

	s := h.Stats()
	assert.Equal(t, 64, s.Nodes)
	total := 0
	for _, n := range s.LevelNodes {
		total += n
	}
	assert.Equal(t, 64, total)
	assert.LessOrEqual(t, s.AvgConnections[0], 8.0)
	assert.Greater(t, s.AvgConnections[0], 0.0)
}
