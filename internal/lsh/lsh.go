package lsh

import (
	"errors"
	"fmt"
	"math/bits"
	"math/rand"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/seqloc/internal/queue"
	"github.com/hupe1980/seqloc/quantization"
)

// ErrInvalidOptions is returned for unusable index parameters.
var ErrInvalidOptions = errors.New("lsh: invalid options")

// ErrDimensionMismatch is returned when a code has the wrong number of words.
var ErrDimensionMismatch = errors.New("lsh: dimension mismatch")

// Options configures the index.
type Options struct {
	// Tables is the number of hash tables.
	Tables int
	// KeySize is the number of sampled bits per table key (1..64).
	KeySize int
	// MultiProbeLevel is the maximum number of flipped key bits probed per table.
	MultiProbeLevel int
	// Seed makes the sampled bit positions reproducible.
	Seed int64
}

// DefaultOptions mirrors the defaults of the hashing relocalizer.
var DefaultOptions = Options{
	Tables:          25,
	KeySize:         25,
	MultiProbeLevel: 2,
	Seed:            1,
}

// Hit is a search result.
type Hit = queue.PriorityQueueItem

// Index is a multi-probe LSH index. It is safe for concurrent use.
type Index struct {
	dimension int
	words     int
	opts      Options

	positions [][]int
	masks     []uint64

	mu      sync.RWMutex
	buckets []map[uint64]*roaring.Bitmap
	codes   [][]uint64
}

// New creates an index for codes of dimension bits.
func New(dimension int, opts Options) (*Index, error) {
	switch {
	case dimension <= 0:
		return nil, fmt.Errorf("%w: dimension must be positive", ErrInvalidOptions)
	case opts.Tables <= 0:
		return nil, fmt.Errorf("%w: tables must be positive", ErrInvalidOptions)
	case opts.KeySize <= 0 || opts.KeySize > 64:
		return nil, fmt.Errorf("%w: key size must be in [1,64]", ErrInvalidOptions)
	case opts.KeySize > dimension:
		return nil, fmt.Errorf("%w: key size %d exceeds dimension %d", ErrInvalidOptions, opts.KeySize, dimension)
	case opts.MultiProbeLevel < 0:
		return nil, fmt.Errorf("%w: multi-probe level must not be negative", ErrInvalidOptions)
	}

	rng := rand.New(rand.NewSource(opts.Seed)) // nolint gosec
	positions := make([][]int, opts.Tables)
	buckets := make([]map[uint64]*roaring.Bitmap, opts.Tables)
	for t := range positions {
		positions[t] = rng.Perm(dimension)[:opts.KeySize]
		buckets[t] = make(map[uint64]*roaring.Bitmap)
	}

	return &Index{
		dimension: dimension,
		words:     (dimension + 63) / 64,
		opts:      opts,
		positions: positions,
		masks:     probeMasks(opts.KeySize, min(opts.MultiProbeLevel, opts.KeySize)),
		buckets:   buckets,
	}, nil
}

// probeMasks enumerates every xor mask over keySize bits with at most level bits set,
// ordered by the number of set bits.
func probeMasks(keySize, level int) []uint64 {
	masks := []uint64{0}
	prev := []uint64{0}
	for l := 1; l <= level; l++ {
		var next []uint64
		for _, m := range prev {
			// Extend only above the highest set bit so each mask is produced once.
			start := 0
			if m != 0 {
				start = 64 - bits.LeadingZeros64(m)
			}
			for b := start; b < keySize; b++ {
				next = append(next, m|1<<b)
			}
		}
		masks = append(masks, next...)
		prev = next
	}
	return masks
}

func (ix *Index) key(table int, code []uint64) uint64 {
	var k uint64
	for i, p := range ix.positions[table] {
		if quantization.Bit(code, p) {
			k |= 1 << i
		}
	}
	return k
}

func (ix *Index) check(code []uint64) error {
	if len(code) != ix.words {
		return fmt.Errorf("%w: expected %d words, got %d", ErrDimensionMismatch, ix.words, len(code))
	}
	return nil
}

// Dimension returns the code length in bits.
func (ix *Index) Dimension() int { return ix.dimension }

// Len returns the number of indexed codes.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.codes)
}

// Add indexes a code and returns its id. Ids are assigned sequentially from 0.
func (ix *Index) Add(code []uint64) (int, error) {
	if err := ix.check(code); err != nil {
		return 0, err
	}
	c := make([]uint64, len(code))
	copy(c, code)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	id := len(ix.codes)
	ix.codes = append(ix.codes, c)
	for t := range ix.buckets {
		k := ix.key(t, c)
		bm, ok := ix.buckets[t][k]
		if !ok {
			bm = roaring.New()
			ix.buckets[t][k] = bm
		}
		bm.Add(uint32(id))
	}
	return id, nil
}

// Candidates returns the ids sharing a probed bucket with code.
func (ix *Index) Candidates(code []uint64) (*roaring.Bitmap, error) {
	if err := ix.check(code); err != nil {
		return nil, err
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.candidates(code), nil
}

func (ix *Index) candidates(code []uint64) *roaring.Bitmap {
	var hits []*roaring.Bitmap
	for t := range ix.buckets {
		k := ix.key(t, code)
		for _, m := range ix.masks {
			if bm, ok := ix.buckets[t][k^m]; ok {
				hits = append(hits, bm)
			}
		}
	}
	if len(hits) == 0 {
		return roaring.New()
	}
	return roaring.FastOr(hits...)
}

// Search returns up to k probed codes closest to code by Hamming distance,
// ascending by distance with ties broken by id.
func (ix *Index) Search(code []uint64, k int) ([]Hit, error) {
	if err := ix.check(code); err != nil {
		return nil, err
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	top := queue.NewTopK(k)
	it := ix.candidates(code).Iterator()
	for it.HasNext() {
		id := int(it.Next())
		top.Push(id, float64(quantization.HammingDistance(code, ix.codes[id])))
	}
	return top.Sorted(), nil
}

// Stats reports index occupancy.
type Stats struct {
	Codes   int
	Buckets int
	Probes  int
}

// Stats returns index occupancy.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	s := Stats{Codes: len(ix.codes), Probes: len(ix.masks) * len(ix.buckets)}
	for _, b := range ix.buckets {
		s.Buckets += len(b)
	}
	return s
}
