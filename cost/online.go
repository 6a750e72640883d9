package cost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/seqloc/feature"
	"github.com/hupe1980/seqloc/internal/cache"
	"github.com/hupe1980/seqloc/model"
	"golang.org/x/sync/singleflight"
	"gonum.org/v1/gonum/mat"
)

// Online computes costs by loading and comparing descriptors on demand.
//
// It is safe for concurrent use, so several localizers may share one provider.
// Concurrent misses on the same pair share a single comparison.
type Online struct {
	queries []string
	refs    []string
	loader  feature.Loader
	cmp     feature.Comparator

	queryBuf *cache.FIFO[feature.Feature]
	refBuf   *cache.FIFO[feature.Feature]

	mu     sync.Mutex
	memo   map[model.Key]float64
	flight singleflight.Group

	precomputed *Matrix
	logger      *slog.Logger
	metrics     MetricsObserver

	lookups     atomic.Int64
	hits        atomic.Int64
	comparisons atomic.Int64
	degraded    atomic.Int64
}

// OnlineOption configures an Online provider.
type OnlineOption func(*Online)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) OnlineOption {
	return func(o *Online) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics observer.
func WithMetrics(m MetricsObserver) OnlineOption {
	return func(o *Online) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithPrecomputed serves pairs inside the bounds of m from the matrix and
// falls back to descriptor comparison outside of it.
func WithPrecomputed(m *Matrix) OnlineOption {
	return func(o *Online) {
		o.precomputed = m
	}
}

// NewOnline creates a provider over the named query and reference descriptors.
// bufferSize bounds each of the two descriptor buffers.
func NewOnline(queries, refs []string, loader feature.Loader, cmp feature.Comparator, bufferSize int, optFns ...OnlineOption) (*Online, error) {
	if loader == nil || cmp == nil {
		return nil, fmt.Errorf("%w: cost provider needs a loader and a comparator", model.ErrInvalidConfig)
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: reference sequence is empty", model.ErrInvalidConfig)
	}
	queryBuf, err := cache.NewFIFO[feature.Feature](bufferSize)
	if err != nil {
		return nil, err
	}
	refBuf, err := cache.NewFIFO[feature.Feature](bufferSize)
	if err != nil {
		return nil, err
	}

	o := &Online{
		queries:  queries,
		refs:     refs,
		loader:   loader,
		cmp:      cmp,
		queryBuf: queryBuf,
		refBuf:   refBuf,
		memo:     make(map[model.Key]float64),
		logger:   slog.Default(),
		metrics:  NoopMetricsObserver{},
	}
	for _, fn := range optFns {
		fn(o)
	}
	return o, nil
}

// QuerySize returns the number of query descriptors.
func (o *Online) QuerySize() int { return len(o.queries) }

// RefSize returns the number of reference descriptors.
func (o *Online) RefSize() int { return len(o.refs) }

// Cost returns the memoized cost of (queryID, refID), computing it on first use.
func (o *Online) Cost(ctx context.Context, queryID, refID int) (float64, error) {
	if err := model.CheckRange(model.RoleQuery, queryID, len(o.queries)); err != nil {
		return 0, err
	}
	if err := model.CheckRange(model.RoleRef, refID, len(o.refs)); err != nil {
		return 0, err
	}

	key := model.Key{QueryID: queryID, RefID: refID}
	o.lookups.Add(1)

	o.mu.Lock()
	c, ok := o.memo[key]
	o.mu.Unlock()
	if ok {
		o.hits.Add(1)
		o.metrics.OnCostLookup(true)
		return c, nil
	}
	o.metrics.OnCostLookup(false)

	v, err, _ := o.flight.Do(strconv.Itoa(queryID)+":"+strconv.Itoa(refID), func() (any, error) {
		o.mu.Lock()
		c, ok := o.memo[key]
		o.mu.Unlock()
		if ok {
			return c, nil
		}

		c, err := o.compute(ctx, queryID, refID)
		if err != nil {
			return nil, err
		}
		o.mu.Lock()
		o.memo[key] = c
		o.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func (o *Online) compute(ctx context.Context, queryID, refID int) (float64, error) {
	if o.precomputed != nil && queryID < o.precomputed.QuerySize() && refID < o.precomputed.RefSize() {
		return o.precomputed.Cost(ctx, queryID, refID)
	}

	q, err := o.QueryFeature(ctx, queryID)
	if err != nil {
		return 0, err
	}
	r, err := o.RefFeature(ctx, refID)
	if err != nil {
		return 0, err
	}

	s, err := o.cmp.Similarity(q, r)
	if err != nil {
		return 0, fmt.Errorf("cost: compare query %d with ref %d: %w", queryID, refID, err)
	}
	o.comparisons.Add(1)

	c := o.cmp.ToCost(s)
	if c == math.MaxFloat64 {
		o.degraded.Add(1)
		o.metrics.OnDegraded(DegradedNearZeroSimilarity)
		o.logger.InfoContext(ctx, "suspiciously small similarity",
			"query_id", queryID,
			"ref_id", refID,
			"similarity", s,
		)
	}
	return c, nil
}

// QueryFeature returns the descriptor of queryID through the query buffer.
func (o *Online) QueryFeature(ctx context.Context, queryID int) (feature.Feature, error) {
	if err := model.CheckRange(model.RoleQuery, queryID, len(o.queries)); err != nil {
		return nil, err
	}
	return o.buffered(ctx, o.queryBuf, queryID, o.queries[queryID], model.RoleQuery)
}

// RefFeature returns the descriptor of refID through the reference buffer.
func (o *Online) RefFeature(ctx context.Context, refID int) (feature.Feature, error) {
	if err := model.CheckRange(model.RoleRef, refID, len(o.refs)); err != nil {
		return nil, err
	}
	return o.buffered(ctx, o.refBuf, refID, o.refs[refID], model.RoleRef)
}

func (o *Online) buffered(ctx context.Context, buf *cache.FIFO[feature.Feature], id int, name string, role model.Role) (feature.Feature, error) {
	if f, ok := buf.Get(id); ok {
		return f, nil
	}
	f, err := o.loader.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("cost: load %s %d: %w", role, id, err)
	}
	if f == nil {
		return nil, fmt.Errorf("cost: load %s %d: %w", role, id, errors.New("loader returned no feature"))
	}
	if replaced := buf.Add(id, f); replaced {
		o.logger.WarnContext(ctx, "feature already buffered", "role", string(role), "id", id)
	}
	return f, nil
}

// RefNames returns the reference descriptor names.
func (o *Online) RefNames() []string { return o.refs }

// Estimated returns every memoized cost as a QuerySize x RefSize matrix
// with NaN for pairs that were never evaluated.
func (o *Online) Estimated() *mat.Dense {
	if len(o.queries) == 0 {
		return nil
	}
	m := mat.NewDense(len(o.queries), len(o.refs), nil)
	for i := range len(o.queries) {
		for j := range len(o.refs) {
			m.Set(i, j, math.NaN())
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for k, c := range o.memo {
		m.Set(k.QueryID, k.RefID, c)
	}
	return m
}

// Stats returns activity counters.
func (o *Online) Stats() Stats {
	return Stats{
		Lookups:     o.lookups.Load(),
		Hits:        o.hits.Load(),
		Comparisons: o.comparisons.Load(),
		Degraded:    o.degraded.Load(),
	}
}
