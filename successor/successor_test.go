package successor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hupe1980/seqloc/cost"
	"github.com/hupe1980/seqloc/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type stubRetriever struct {
	ids []int
	err error
}

func (s stubRetriever) Candidates(context.Context, int) ([]int, error) {
	return s.ids, s.err
}

type recordingMetrics struct {
	expansions      []int
	relocalizations []int
}

func (r *recordingMetrics) OnExpansion(n int)      { r.expansions = append(r.expansions, n) }
func (r *recordingMetrics) OnRelocalization(n int) { r.relocalizations = append(r.relocalizations, n) }

// provider with cost 10*q + r over a 4x8 grid.
func provider(t *testing.T) *cost.Matrix {
	t.Helper()
	data := make([]float64, 4*8)
	for q := range 4 {
		for r := range 8 {
			data[q*8+r] = float64(10*q + r)
		}
	}
	p, err := cost.NewCostMatrix(mat.NewDense(4, 8, data))
	require.NoError(t, err)
	return p
}

func refIDs(nodes []model.Node) []int {
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = n.RefID
	}
	return out
}

func TestSuccessors(t *testing.T) {
	ctx := context.Background()
	metrics := &recordingMetrics{}
	e, err := New(provider(t), stubRetriever{}, 2, WithMetrics(metrics))
	require.NoError(t, err)

	succ, err := e.Successors(ctx, model.NewNode(1, 5, 0))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5, 6, 7}, refIDs(succ))
	for _, s := range succ {
		assert.Equal(t, 2, s.QueryID)
		assert.Equal(t, float64(20+s.RefID), s.Cost)
	}

	succ, err = e.Successors(ctx, model.NewNode(0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, refIDs(succ))
	assert.Equal(t, []int{5, 3}, metrics.expansions)
}

func TestSuccessors_SimilarPlaces(t *testing.T) {
	ctx := context.Background()
	places, err := LoadSimilarPlaces(strings.NewReader("1 6\n"))
	require.NoError(t, err)

	e, err := New(provider(t), stubRetriever{}, 1, WithSimilarPlaces(places))
	require.NoError(t, err)

	succ, err := e.Successors(ctx, model.NewNode(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 5, 6, 7}, refIDs(succ))

	succ, err = e.Successors(ctx, model.NewNode(0, 6, 0))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 5, 6, 7}, refIDs(succ))

	// Overlapping windows are deduplicated.
	places, err = LoadSimilarPlaces(strings.NewReader("3 4"))
	require.NoError(t, err)
	e, err = New(provider(t), stubRetriever{}, 1, WithSimilarPlaces(places))
	require.NoError(t, err)
	succ, err = e.Successors(ctx, model.NewNode(0, 3, 0))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 5}, refIDs(succ))
}

func TestSuccessors_Errors(t *testing.T) {
	ctx := context.Background()
	e, err := New(provider(t), stubRetriever{}, 2)
	require.NoError(t, err)

	_, err = e.Successors(ctx, model.Source())
	assert.ErrorIs(t, err, model.ErrInvariant)

	_, err = e.Successors(ctx, model.NewNode(-2, 0, 0))
	assert.ErrorIs(t, err, model.ErrOutOfRange)

	// Query 4 does not exist.
	_, err = e.Successors(ctx, model.NewNode(3, 0, 0))
	assert.ErrorIs(t, err, model.ErrOutOfRange)
}

func TestSuccessorsIfLost(t *testing.T) {
	ctx := context.Background()
	metrics := &recordingMetrics{}
	e, err := New(provider(t), stubRetriever{ids: []int{6, 2}}, 2, WithMetrics(metrics))
	require.NoError(t, err)

	succ, err := e.SuccessorsIfLost(ctx, model.NewNode(0, 4, 0))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 6}, refIDs(succ))
	assert.Equal(t, 1, succ[0].QueryID)
	assert.Equal(t, 12.0, succ[0].Cost)
	assert.Equal(t, []int{2}, metrics.relocalizations)
}

func TestSuccessorsIfLost_NoCandidates(t *testing.T) {
	ctx := context.Background()
	metrics := &recordingMetrics{}
	e, err := New(provider(t), stubRetriever{}, 2, WithMetrics(metrics))
	require.NoError(t, err)

	succ, err := e.SuccessorsIfLost(ctx, model.NewNode(1, 5, 0))
	require.NoError(t, err)
	require.Len(t, succ, 1)
	assert.Equal(t, model.NewNode(2, 5, 25), succ[0])

	succ, err = e.SuccessorsIfLost(ctx, model.Source())
	require.NoError(t, err)
	require.Len(t, succ, 1)
	assert.Equal(t, model.NewNode(0, 0, 0), succ[0])
	assert.Equal(t, []int{0, 0}, metrics.relocalizations)
}

func TestSuccessorsIfLost_RetrieverError(t *testing.T) {
	boom := errors.New("boom")
	e, err := New(provider(t), stubRetriever{err: boom}, 2)
	require.NoError(t, err)

	_, err = e.SuccessorsIfLost(context.Background(), model.Source())
	assert.ErrorIs(t, err, boom)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, stubRetriever{}, 1)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	_, err = New(provider(t), nil, 1)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	_, err = New(provider(t), stubRetriever{}, 0)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestLoadSimilarPlaces(t *testing.T) {
	places, err := LoadSimilarPlaces(strings.NewReader("1 4\n4 9\n1 4\n"))
	require.NoError(t, err)
	assert.Equal(t, map[int][]int{
		1: {4},
		4: {1, 9},
		9: {4},
	}, places)

	_, err = LoadSimilarPlaces(strings.NewReader("1 4 7"))
	assert.ErrorIs(t, err, model.ErrArtifact)

	_, err = LoadSimilarPlaces(strings.NewReader("1 x"))
	assert.ErrorIs(t, err, model.ErrArtifact)

	places, err = LoadSimilarPlaces(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, places)
}
