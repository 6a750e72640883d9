package relocalize

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/seqloc/feature"
	"github.com/hupe1980/seqloc/internal/hnsw"
	"github.com/hupe1980/seqloc/internal/queue"
	"github.com/hupe1980/seqloc/model"
	"golang.org/x/sync/errgroup"
)

// RingKeyOptions configures the ring key retriever.
type RingKeyOptions struct {
	// K is the number of neighbors retrieved per query shift.
	K int
	// M is the HNSW connection count.
	M int
	// EF is the HNSW candidate list size for construction and search.
	EF int
	// Seed makes the graph reproducible.
	Seed int64
}

// DefaultRingKeyOptions are the library defaults.
var DefaultRingKeyOptions = RingKeyOptions{
	K:    5,
	M:    16,
	EF:   100,
	Seed: 1,
}

// RingKey retrieves candidates by nearest ring keys of scan context descriptors.
//
// Every stored shift of every reference place is indexed, so index hit h
// belongs to place h / shiftsPerPlace.
type RingKey struct {
	source QuerySource
	opts   RingKeyOptions

	mu             sync.RWMutex
	graph          *hnsw.HNSW
	keys           [][][]float64
	shiftsPerPlace int
}

// NewRingKey creates an untrained ring key retriever.
func NewRingKey(source QuerySource, opts RingKeyOptions) (*RingKey, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: ring key retriever needs a query source", model.ErrInvalidConfig)
	}
	if opts.K <= 0 || opts.EF <= 0 {
		return nil, fmt.Errorf("%w: invalid ring key options %+v", model.ErrInvalidConfig, opts)
	}
	return &RingKey{source: source, opts: opts}, nil
}

// Train computes the ring keys of every reference shift and builds the graph.
// All references must store the same number of shifts.
func (rk *RingKey) Train(ctx context.Context, refs []*feature.ScanContext) error {
	if len(refs) == 0 {
		return fmt.Errorf("%w: no reference descriptors to train on", model.ErrInvalidConfig)
	}
	shifts := refs[0].Shifts()
	for i, r := range refs {
		if r.Shifts() != shifts {
			return fmt.Errorf("%w: reference %d stores %d shifts, want %d", model.ErrInvalidConfig, i, r.Shifts(), shifts)
		}
	}

	keys := make([][][]float64, len(refs))
	g, _ := errgroup.WithContext(ctx)
	for i, r := range refs {
		g.Go(func() error {
			keys[i] = r.RingKeys()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	dim := len(keys[0][0])
	graph, err := hnsw.New(dim, func(o *hnsw.Options) {
		if rk.opts.M > 0 {
			o.M = rk.opts.M
		}
		o.EF = rk.opts.EF
		o.Seed = rk.opts.Seed
	})
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrInvalidConfig, err)
	}
	for place, placeKeys := range keys {
		for _, k := range placeKeys {
			if _, err := graph.Insert(k); err != nil {
				return fmt.Errorf("%w: reference %d: %w", model.ErrInvalidConfig, place, err)
			}
		}
	}

	rk.mu.Lock()
	rk.graph = graph
	rk.keys = keys
	rk.shiftsPerPlace = shifts
	rk.mu.Unlock()
	return nil
}

// Len returns the number of indexed places.
func (rk *RingKey) Len() int {
	rk.mu.RLock()
	defer rk.mu.RUnlock()
	return len(rk.keys)
}

func (rk *RingKey) queryKeys(ctx context.Context, queryID int) ([][]float64, error) {
	f, err := rk.source.QueryFeature(ctx, queryID)
	if err != nil {
		return nil, err
	}
	sc, ok := f.(*feature.ScanContext)
	if !ok {
		return nil, fmt.Errorf("%w: ring key retriever needs scan contexts, got %v", model.ErrInvalidConfig, f.Kind())
	}
	return sc.RingKeys(), nil
}

// Candidates queries K neighbors per query shift and returns the places they belong to.
func (rk *RingKey) Candidates(ctx context.Context, queryID int) ([]int, error) {
	rk.mu.RLock()
	graph, shifts := rk.graph, rk.shiftsPerPlace
	rk.mu.RUnlock()
	if graph == nil {
		return nil, fmt.Errorf("%w: ring key retriever used before training", model.ErrInvariant)
	}

	keys, err := rk.queryKeys(ctx, queryID)
	if err != nil {
		return nil, err
	}

	var places []int
	for _, k := range keys {
		if len(k) != graph.Dimension() {
			return nil, &feature.DimensionError{Expected: graph.Dimension(), Actual: len(k)}
		}
		hits, err := graph.KNNSearch(k, rk.opts.K, rk.opts.EF)
		if err != nil {
			return nil, fmt.Errorf("relocalize: ring key search: %w", err)
		}
		for _, h := range hits {
			places = append(places, h.Node/shifts)
		}
	}
	return normalize(places), nil
}

// BruteForceCandidates ranks every place by the minimum cosine distance over
// all shift pairs of ring keys and returns the K best, ascending by id.
func (rk *RingKey) BruteForceCandidates(ctx context.Context, queryID int) ([]int, error) {
	rk.mu.RLock()
	stored := rk.keys
	rk.mu.RUnlock()
	if stored == nil {
		return nil, fmt.Errorf("%w: ring key retriever used before training", model.ErrInvariant)
	}

	keys, err := rk.queryKeys(ctx, queryID)
	if err != nil {
		return nil, err
	}

	top := queue.NewTopK(rk.opts.K)
	for place, placeKeys := range stored {
		top.Push(place, feature.RingKeyDistance(keys, placeKeys))
	}

	ranked := top.Sorted()
	ids := make([]int, len(ranked))
	for i, r := range ranked {
		ids[i] = r.Node
	}
	return normalize(ids), nil
}

// BruteForce adapts the exhaustive ring key search to the Retriever interface.
type BruteForce struct {
	rk *RingKey
}

// NewBruteForce wraps a trained ring key retriever.
func NewBruteForce(rk *RingKey) *BruteForce {
	return &BruteForce{rk: rk}
}

// Candidates returns rk.BruteForceCandidates.
func (b *BruteForce) Candidates(ctx context.Context, queryID int) ([]int, error) {
	return b.rk.BruteForceCandidates(ctx, queryID)
}
