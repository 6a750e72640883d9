package cost

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/seqloc/feature"
	"github.com/hupe1980/seqloc/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// mapLoader serves vectors from memory and counts loads.
type mapLoader struct {
	features map[string]feature.Feature
	loads    atomic.Int64
}

func (l *mapLoader) Load(_ context.Context, name string) (feature.Feature, error) {
	l.loads.Add(1)
	f, ok := l.features[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrArtifact, name)
	}
	return f, nil
}

// countingComparator wraps VectorComparator and counts comparisons.
type countingComparator struct {
	feature.VectorComparator
	calls atomic.Int64
}

func (c *countingComparator) Similarity(a, b feature.Feature) (float64, error) {
	c.calls.Add(1)
	return c.VectorComparator.Similarity(a, b)
}

func fixture(n int) ([]string, []string, *mapLoader) {
	loader := &mapLoader{features: map[string]feature.Feature{}}
	var queries, refs []string
	for i := range n {
		q := fmt.Sprintf("query/%d", i)
		r := fmt.Sprintf("ref/%d", i)
		v := make([]float64, n)
		v[i] = 1
		loader.features[q] = feature.NewVector(v)
		loader.features[r] = feature.NewVector(append([]float64(nil), v...))
		queries = append(queries, q)
		refs = append(refs, r)
	}
	return queries, refs, loader
}

type recordingMetrics struct {
	mu       sync.Mutex
	hits     int
	misses   int
	degraded []string
}

func (r *recordingMetrics) OnCostLookup(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *recordingMetrics) OnDegraded(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.degraded = append(r.degraded, kind)
}

func TestOnline_Memoizes(t *testing.T) {
	ctx := context.Background()
	queries, refs, loader := fixture(4)
	cmp := &countingComparator{}
	metrics := &recordingMetrics{}

	p, err := NewOnline(queries, refs, loader, cmp, 10, WithMetrics(metrics))
	require.NoError(t, err)
	assert.Equal(t, 4, p.QuerySize())
	assert.Equal(t, 4, p.RefSize())

	c1, err := p.Cost(ctx, 2, 2)
	require.NoError(t, err)
	c2, err := p.Cost(ctx, 2, 2)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, c1, 1e-12)
	assert.Equal(t, c1, c2)
	assert.Equal(t, int64(1), cmp.calls.Load())
	assert.Equal(t, Stats{Lookups: 2, Hits: 1, Comparisons: 1}, p.Stats())
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 1, metrics.misses)
}

// gatedComparator blocks every comparison until release is closed.
type gatedComparator struct {
	countingComparator
	release chan struct{}
}

func (c *gatedComparator) Similarity(a, b feature.Feature) (float64, error) {
	<-c.release
	return c.countingComparator.Similarity(a, b)
}

func TestOnline_ConcurrentMissComparesOnce(t *testing.T) {
	queries, refs, loader := fixture(3)
	cmp := &gatedComparator{release: make(chan struct{})}
	p, err := NewOnline(queries, refs, loader, cmp, 4)
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	costs := make([]float64, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			costs[i], errs[i] = p.Cost(context.Background(), 1, 1)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(cmp.release)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.InDelta(t, 1.0, costs[i], 1e-9)
	}
	assert.Equal(t, int64(1), cmp.calls.Load())
	assert.Equal(t, int64(1), p.Stats().Comparisons)
}

func TestOnline_NonMatchIsDegraded(t *testing.T) {
	ctx := context.Background()
	queries, refs, loader := fixture(3)
	metrics := &recordingMetrics{}

	p, err := NewOnline(queries, refs, loader, feature.VectorComparator{}, 10, WithMetrics(metrics))
	require.NoError(t, err)

	c, err := p.Cost(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, math.MaxFloat64, c)
	assert.Equal(t, int64(1), p.Stats().Degraded)
	assert.Equal(t, []string{DegradedNearZeroSimilarity}, metrics.degraded)
}

func TestOnline_BufferBoundsLoads(t *testing.T) {
	ctx := context.Background()
	queries, refs, loader := fixture(4)

	p, err := NewOnline(queries, refs, loader, feature.VectorComparator{}, 2)
	require.NoError(t, err)

	// Query 0 stays buffered while refs 0..3 stream through a buffer of two.
	for r := range 4 {
		_, err := p.Cost(ctx, 0, r)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(5), loader.loads.Load())

	// Ref 3 is still buffered, so only query 1 is loaded.
	_, err = p.Cost(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(6), loader.loads.Load())

	// Ref 0 was evicted.
	_, err = p.Cost(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), loader.loads.Load())
}

func TestOnline_ZeroBuffer(t *testing.T) {
	ctx := context.Background()
	queries, refs, loader := fixture(2)

	p, err := NewOnline(queries, refs, loader, feature.VectorComparator{}, 0)
	require.NoError(t, err)

	_, err = p.Cost(ctx, 0, 0)
	require.NoError(t, err)
	_, err = p.Cost(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), loader.loads.Load())
}

func TestOnline_OutOfRange(t *testing.T) {
	ctx := context.Background()
	queries, refs, loader := fixture(2)
	p, err := NewOnline(queries, refs, loader, feature.VectorComparator{}, 2)
	require.NoError(t, err)

	_, err = p.Cost(ctx, 2, 0)
	assert.ErrorIs(t, err, model.ErrOutOfRange)

	_, err = p.Cost(ctx, 0, -1)
	var re *model.RangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, model.RoleRef, re.Role)

	_, err = p.QueryFeature(ctx, 5)
	assert.ErrorIs(t, err, model.ErrOutOfRange)
}

func TestOnline_Validation(t *testing.T) {
	queries, refs, loader := fixture(2)

	_, err := NewOnline(queries, refs, nil, feature.VectorComparator{}, 1)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	_, err = NewOnline(queries, nil, loader, feature.VectorComparator{}, 1)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	_, err = NewOnline(queries, refs, loader, feature.VectorComparator{}, -1)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestOnline_LoadFailure(t *testing.T) {
	queries, refs, loader := fixture(2)
	delete(loader.features, refs[1])

	p, err := NewOnline(queries, refs, loader, feature.VectorComparator{}, 2)
	require.NoError(t, err)

	_, err = p.Cost(context.Background(), 0, 1)
	assert.ErrorIs(t, err, model.ErrArtifact)
}

func TestOnline_Precomputed(t *testing.T) {
	ctx := context.Background()
	queries, refs, loader := fixture(3)
	cmp := &countingComparator{}

	// Only the first query row is precomputed.
	pre, err := NewCostMatrix(mat.NewDense(1, 3, []float64{7, 8, 9}))
	require.NoError(t, err)

	p, err := NewOnline(queries, refs, loader, cmp, 4, WithPrecomputed(pre))
	require.NoError(t, err)

	c, err := p.Cost(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 8.0, c)
	assert.Equal(t, int64(0), cmp.calls.Load())

	c, err = p.Cost(ctx, 2, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c, 1e-12)
	assert.Equal(t, int64(1), cmp.calls.Load())
}

func TestOnline_Estimated(t *testing.T) {
	ctx := context.Background()
	queries, refs, loader := fixture(2)
	p, err := NewOnline(queries, refs, loader, feature.VectorComparator{}, 2)
	require.NoError(t, err)

	_, err = p.Cost(ctx, 1, 1)
	require.NoError(t, err)

	m := p.Estimated()
	require.NotNil(t, m)
	assert.InDelta(t, 1.0, m.At(1, 1), 1e-12)
	assert.True(t, math.IsNaN(m.At(0, 0)))
	assert.True(t, math.IsNaN(m.At(1, 0)))
}
