package cost

import (
	"context"
	"math"
	"testing"

	"github.com/hupe1980/seqloc/blobstore"
	"github.com/hupe1980/seqloc/matrix"
	"github.com/hupe1980/seqloc/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSimilarityToCost(t *testing.T) {
	assert.Equal(t, 2.0, SimilarityToCost(0.5))
	assert.Equal(t, 2.0, SimilarityToCost(-0.5))
	assert.Equal(t, math.MaxFloat64, SimilarityToCost(0))
	assert.Equal(t, math.MaxFloat64, SimilarityToCost(-1e-12))
}

func TestMatrix_Similarity(t *testing.T) {
	ctx := context.Background()
	metrics := &recordingMetrics{}
	p, err := NewSimilarityMatrix(mat.NewDense(2, 2, []float64{
		0.5, -0.25,
		0, 1,
	}), WithMatrixMetrics(metrics))
	require.NoError(t, err)
	assert.Equal(t, KindSimilarity, p.Kind())

	c, err := p.Cost(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, c)

	c, err = p.Cost(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 4.0, c)

	c, err = p.Cost(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, math.MaxFloat64, c)

	// Memoized.
	c, err = p.Cost(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 4.0, c)

	assert.Equal(t, Stats{Lookups: 4, Hits: 1, Degraded: 2}, p.Stats())
	assert.Equal(t, []string{DegradedNegativeSimilarity, DegradedNearZeroSimilarity}, metrics.degraded)
}

func TestMatrix_Cost(t *testing.T) {
	ctx := context.Background()
	p, err := NewCostMatrix(mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6}))
	require.NoError(t, err)
	assert.Equal(t, 2, p.QuerySize())
	assert.Equal(t, 3, p.RefSize())

	c, err := p.Cost(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 6.0, c)

	_, err = p.Cost(ctx, 2, 0)
	assert.ErrorIs(t, err, model.ErrOutOfRange)
	_, err = p.Cost(ctx, 0, 3)
	assert.ErrorIs(t, err, model.ErrOutOfRange)
}

func TestMatrix_Empty(t *testing.T) {
	_, err := NewCostMatrix(&mat.Dense{})
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	_, err = NewSimilarityMatrix(nil)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestLoadMatrix(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, matrix.Write(ctx, store, "sim.sqm", mat.NewDense(1, 2, []float64{0.5, 0.25}), matrix.CompressionLZ4))

	p, err := LoadMatrix(ctx, store, "sim.sqm", KindSimilarity)
	require.NoError(t, err)
	c, err := p.Cost(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 4.0, c)

	_, err = LoadMatrix(ctx, store, "missing.sqm", KindCost)
	assert.ErrorIs(t, err, model.ErrArtifact)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}
