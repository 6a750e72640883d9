package relocalize

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/seqloc/feature"
	"github.com/hupe1980/seqloc/internal/lsh"
	"github.com/hupe1980/seqloc/model"
	"github.com/hupe1980/seqloc/quantization"
	"golang.org/x/sync/errgroup"
)

// HashingOptions configures the hashing retriever.
type HashingOptions struct {
	// Tables is the number of hash tables.
	Tables int
	// KeySize is the number of bits per table key.
	KeySize int
	// MultiProbeLevel is the maximum number of flipped key bits probed.
	MultiProbeLevel int
	// K is the number of nearest references returned per query.
	K int
	// Seed makes the hash functions reproducible.
	Seed int64
}

// DefaultHashingOptions are the library defaults.
var DefaultHashingOptions = HashingOptions{
	Tables:          25,
	KeySize:         25,
	MultiProbeLevel: 2,
	K:               5,
	Seed:            1,
}

// Hashing retrieves candidates by Hamming distance between binarized descriptors.
type Hashing struct {
	source QuerySource
	opts   HashingOptions

	mu    sync.RWMutex
	index *lsh.Index
}

// NewHashing creates an untrained hashing retriever.
func NewHashing(source QuerySource, opts HashingOptions) (*Hashing, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: hashing retriever needs a query source", model.ErrInvalidConfig)
	}
	if opts.Tables <= 0 || opts.KeySize <= 0 || opts.MultiProbeLevel < 0 || opts.K <= 0 {
		return nil, fmt.Errorf("%w: invalid hashing options %+v", model.ErrInvalidConfig, opts)
	}
	return &Hashing{source: source, opts: opts}, nil
}

// Options returns the configured options.
func (h *Hashing) Options() HashingOptions { return h.opts }

// Train binarizes every reference descriptor and builds the index.
// Reference i is indexed under id i.
func (h *Hashing) Train(ctx context.Context, refs []feature.Feature) error {
	if len(refs) == 0 {
		return fmt.Errorf("%w: no reference descriptors to train on", model.ErrInvalidConfig)
	}
	first, ok := refs[0].(*feature.Vector)
	if !ok {
		return fmt.Errorf("%w: hashing needs vector descriptors, got %v", model.ErrInvalidConfig, refs[0].Kind())
	}
	dim := first.Dim()

	codes := make([][]uint64, len(refs))
	g, _ := errgroup.WithContext(ctx)
	for i, f := range refs {
		g.Go(func() error {
			v, ok := f.(*feature.Vector)
			if !ok {
				return fmt.Errorf("%w: reference %d is not a vector", model.ErrInvalidConfig, i)
			}
			if v.Dim() != dim {
				return fmt.Errorf("%w: reference %d has dimension %d, want %d", model.ErrInvalidConfig, i, v.Dim(), dim)
			}
			codes[i] = quantization.Binarize(v.Values())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	index, err := lsh.New(dim, lsh.Options{
		Tables:          h.opts.Tables,
		KeySize:         h.opts.KeySize,
		MultiProbeLevel: h.opts.MultiProbeLevel,
		Seed:            h.opts.Seed,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrInvalidConfig, err)
	}
	for _, c := range codes {
		if _, err := index.Add(c); err != nil {
			return err
		}
	}

	h.mu.Lock()
	h.index = index
	h.mu.Unlock()
	return nil
}

// Len returns the number of indexed references.
func (h *Hashing) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.index == nil {
		return 0
	}
	return h.index.Len()
}

// Candidates returns the K references closest to the query in Hamming distance.
func (h *Hashing) Candidates(ctx context.Context, queryID int) ([]int, error) {
	h.mu.RLock()
	index := h.index
	h.mu.RUnlock()
	if index == nil {
		return nil, fmt.Errorf("%w: hashing retriever used before training", model.ErrInvariant)
	}

	f, err := h.source.QueryFeature(ctx, queryID)
	if err != nil {
		return nil, err
	}
	v, ok := f.(*feature.Vector)
	if !ok {
		return nil, fmt.Errorf("%w: hashing needs vector descriptors, got %v", model.ErrInvalidConfig, f.Kind())
	}
	if v.Dim() != index.Dimension() {
		return nil, &feature.DimensionError{Expected: index.Dimension(), Actual: v.Dim()}
	}

	hits, err := index.Search(quantization.Binarize(v.Values()), h.opts.K)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(hits))
	for i, hit := range hits {
		ids[i] = hit.Node
	}
	return normalize(ids), nil
}
