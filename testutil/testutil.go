package testutil

import (
	"math"
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// UniformVector generates a random vector with values in range [0, 1).
func (r *RNG) UniformVector(dim int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vec := make([]float64, dim)
	for j := range vec {
		vec[j] = r.rand.Float64()
	}
	return vec
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num, dim int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*dim)
	vectors := make([][]float64, num)
	for i := range num {
		vec := data[i*dim : (i+1)*dim]
		for j := range vec {
			vec[j] = r.rand.Float64()
		}
		vectors[i] = vec
	}
	return vectors
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
func (r *RNG) UnitVectors(num, dim int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vectors := make([][]float64, num)
	for i := range num {
		vectors[i] = r.unitLocked(dim)
	}
	return vectors
}

func (r *RNG) unitLocked(dim int) []float64 {
	vec := make([]float64, dim)
	var norm float64
	for j := range vec {
		v := r.rand.NormFloat64()
		vec[j] = v
		norm += v * v
	}
	if norm == 0 {
		norm = 1
	}
	inv := 1 / math.Sqrt(norm)
	for j := range vec {
		vec[j] *= inv
	}
	return vec
}

// Perturb returns a copy of v with Gaussian noise of the given standard deviation added.
func (r *RNG) Perturb(v []float64, noise float64) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x + r.rand.NormFloat64()*noise
	}
	return out
}

// Trajectory generates n reference descriptors and n query descriptors where
// query i is a noisy revisit of reference i.
func (r *RNG) Trajectory(n, dim int, noise float64) (refs, queries [][]float64) {
	refs = r.UnitVectors(n, dim)
	queries = make([][]float64, n)
	for i, ref := range refs {
		queries[i] = r.Perturb(ref, noise)
	}
	return refs, queries
}

// OccupancyGrid generates a rows x cols grid in row-major order where each
// cell is occupied with the given probability and holds a height in (0, 1].
func (r *RNG) OccupancyGrid(rows, cols int, density float64) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	grid := make([]float64, rows*cols)
	for i := range grid {
		if r.rand.Float64() < density {
			grid[i] = 1 - r.rand.Float64()
		}
	}
	return grid
}

// ShiftColumns returns a copy of a row-major grid with its columns rotated by shift.
func ShiftColumns(grid []float64, rows, cols, shift int) []float64 {
	out := make([]float64, len(grid))
	for i := range rows {
		for j := range cols {
			out[i*cols+(j+shift)%cols] = grid[i*cols+j]
		}
	}
	return out
}

// ComputeRecall returns the fraction of ids in truth that also appear in approx.
func ComputeRecall(truth, approx []int) float64 {
	if len(truth) == 0 {
		if len(approx) == 0 {
			return 1.0
		}
		return 0.0
	}

	set := make(map[int]struct{}, len(approx))
	for _, id := range approx {
		set[id] = struct{}{}
	}
	hits := 0
	for _, id := range truth {
		if _, ok := set[id]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(truth))
}
