package lsh

import (
	"testing"

	"github.com/hupe1980/seqloc/quantization"
	"github.com/hupe1980/seqloc/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	for name, tc := range map[string]struct {
		dim  int
		opts Options
	}{
		"zero dimension": {dim: 0, opts: DefaultOptions},
		"no tables":      {dim: 64, opts: Options{Tables: 0, KeySize: 8}},
		"key too large":  {dim: 128, opts: Options{Tables: 1, KeySize: 65}},
		"key over dim":   {dim: 8, opts: Options{Tables: 1, KeySize: 12}},
		"negative probe": {dim: 64, opts: Options{Tables: 1, KeySize: 8, MultiProbeLevel: -1}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(tc.dim, tc.opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestProbeMasks(t *testing.T) {
	assert.Equal(t, []uint64{0}, probeMasks(4, 0))
	assert.Equal(t, []uint64{0, 1, 2, 4}, probeMasks(3, 1))

	masks := probeMasks(25, 2)
	assert.Len(t, masks, 1+25+300)

	seen := make(map[uint64]bool)
	for _, m := range masks {
		assert.False(t, seen[m])
		seen[m] = true
	}
}

func TestIndex_ExactMatch(t *testing.T) {
	rng := testutil.NewRNG(7)
	ix, err := New(128, Options{Tables: 4, KeySize: 12, MultiProbeLevel: 1, Seed: 3})
	require.NoError(t, err)

	var codes [][]uint64
	for _, v := range rng.UniformVectors(50, 128) {
		code := quantization.Binarize(v)
		id, err := ix.Add(code)
		require.NoError(t, err)
		assert.Equal(t, len(codes), id)
		codes = append(codes, code)
	}
	assert.Equal(t, 50, ix.Len())

	hits, err := ix.Search(codes[17], 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 17, hits[0].Node)
	assert.Equal(t, 0.0, hits[0].Distance)

	stats := ix.Stats()
	assert.Equal(t, 50, stats.Codes)
	assert.Equal(t, 4*(1+12), stats.Probes)
}

func TestIndex_Recall(t *testing.T) {
	rng := testutil.NewRNG(42)
	refs, queries := rng.Trajectory(100, 256, 0.01)

	ix, err := New(256, DefaultOptions)
	require.NoError(t, err)
	for _, r := range refs {
		_, err := ix.Add(quantization.Binarize(r))
		require.NoError(t, err)
	}

	var truth, found []int
	for i, q := range queries {
		hits, err := ix.Search(quantization.Binarize(q), 5)
		require.NoError(t, err)
		truth = append(truth, i)
		for _, h := range hits {
			if h.Node == i {
				found = append(found, i)
				break
			}
		}
	}
	assert.GreaterOrEqual(t, testutil.ComputeRecall(truth, found), 0.9)
}

func TestIndex_DimensionMismatch(t *testing.T) {
	ix, err := New(64, Options{Tables: 1, KeySize: 8})
	require.NoError(t, err)

	_, err = ix.Add(make([]uint64, 2))
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = ix.Search(make([]uint64, 2), 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestIndex_Empty(t *testing.T) {
	ix, err := New(64, Options{Tables: 2, KeySize: 8})
	require.NoError(t, err)

	hits, err := ix.Search(make([]uint64, 1), 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
