package hnsw

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/seqloc/feature"
	"github.com/hupe1980/seqloc/internal/queue"
)

// ErrDimensionMismatch is a named error type for dimension mismatch
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// DistanceFunc calculates the distance between two vectors.
type DistanceFunc func(v1, v2 []float64) float64

// Item is a search result: a node id and its distance to the query.
type Item = queue.PriorityQueueItem

// Node represents a node in the HNSW graph
type Node struct {
	Connections [][]int   // Links to other nodes, per layer
	Vector      []float64 // Vector (X dimensions)
	Layer       int       // Top layer the node exists in
	ID          int       // Insertion order
}

// Options represents the options for configuring HNSW.
type Options struct {
	// M is the number of established connections for every new element during construction.
	M int

	// EF is the size of the dynamic candidate list during construction.
	EF int

	// Heuristic selects neighbours with the diversity heuristic instead of plain k-NN.
	Heuristic bool

	// DistanceFunc is the distance between vectors.
	DistanceFunc DistanceFunc

	// Seed drives the layer assignment.
	Seed int64
}

// DefaultOptions uses cosine distance.
var DefaultOptions = Options{
	M:            16,
	EF:           200,
	Heuristic:    true,
	DistanceFunc: feature.CosineDistance,
	Seed:         1,
}

// HNSW represents the Hierarchical Navigable Small World graph
type HNSW struct {
	dimension int
	mmax      int     // Max number of connections per element/per layer
	mmax0     int     // Max for the 0 layer
	ml        float64 // Normalization factor for level generation
	ep        int     // Entry point
	maxLevel  int     // Track the current max level used

	nodes []*Node
	rng   *rand.Rand

	opts Options

	mutex sync.RWMutex
}

// New creates a new HNSW instance with the given dimension and options
func New(dimension int, optFns ...func(o *Options)) (*HNSW, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if dimension <= 0 {
		return nil, fmt.Errorf("hnsw: dimension must be positive, got %d", dimension)
	}
	if opts.DistanceFunc == nil {
		return nil, fmt.Errorf("hnsw: distance function is required")
	}
	if opts.EF <= 0 {
		return nil, fmt.Errorf("hnsw: EF must be positive, got %d", opts.EF)
	}
	if opts.M < 2 {
		// 1 / log(1.0 * M) is undefined below 2.
		opts.M = 2
	}

	return &HNSW{
		dimension: dimension,
		mmax:      opts.M,
		mmax0:     2 * opts.M,
		ml:        1 / math.Log(float64(opts.M)),
		rng:       rand.New(rand.NewSource(opts.Seed)), // nolint gosec
		opts:      opts,
	}, nil
}

// Dimension returns the vector dimension.
func (h *HNSW) Dimension() int { return h.dimension }

// Len returns the number of nodes.
func (h *HNSW) Len() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.nodes)
}

// Insert inserts a new element into the HNSW graph and returns its id.
func (h *HNSW) Insert(v []float64) (int, error) {
	if len(v) != h.dimension {
		return 0, &ErrDimensionMismatch{Expected: h.dimension, Actual: len(v)}
	}

	vectorCopy := make([]float64, len(v))
	copy(vectorCopy, v)

	h.mutex.Lock()
	defer h.mutex.Unlock()

	id := len(h.nodes)
	layer := int(math.Floor(-math.Log(1-h.rng.Float64()) * h.ml))
	node := &Node{
		ID:          id,
		Vector:      vectorCopy,
		Layer:       layer,
		Connections: make([][]int, layer+1),
	}

	if id == 0 {
		h.nodes = append(h.nodes, node)
		h.ep = id
		h.maxLevel = layer
		return id, nil
	}

	// Greedy descent through the layers above the node, which gives the starting point
	ep := h.descend(vectorCopy, layer)

	for level := min(layer, h.maxLevel); level >= 0; level-- {
		candidates := h.searchLayer(vectorCopy, ep, h.opts.EF, level)

		var neighbours []Item
		if h.opts.Heuristic {
			neighbours = h.selectNeighboursHeuristic(candidates, h.opts.M)
		} else {
			neighbours = selectNeighboursSimple(candidates, h.opts.M)
		}

		node.Connections[level] = make([]int, len(neighbours))
		for i, n := range neighbours {
			node.Connections[level][i] = n.Node
		}

		ep = candidates[0]
	}

	h.nodes = append(h.nodes, node)

	// Link the neighbours back to our new node, making it visible
	for level := min(layer, h.maxLevel); level >= 0; level-- {
		for _, neighbour := range node.Connections[level] {
			h.link(neighbour, id, level)
		}
	}

	if layer > h.maxLevel {
		h.ep = id
		h.maxLevel = layer
	}

	return id, nil
}

// descend walks greedily from the entry point down to the layer above target.
func (h *HNSW) descend(q []float64, target int) Item {
	curr := h.nodes[h.ep]
	currDist := h.opts.DistanceFunc(q, curr.Vector)

	for level := h.maxLevel; level > target; level-- {
		changed := true
		for changed {
			changed = false

			for _, nodeID := range curr.Connections[level] {
				next := h.nodes[nodeID]
				d := h.opts.DistanceFunc(q, next.Vector)
				if d < currDist {
					curr = next
					currDist = d
					changed = true
				}
			}
		}
	}

	return Item{Node: curr.ID, Distance: currDist}
}

// KNNSearch performs a k-nearest neighbor search in the HNSW graph.
// Results are ascending by distance, ties broken by id.
func (h *HNSW) KNNSearch(q []float64, k int, efSearch int) ([]Item, error) {
	if len(q) != h.dimension {
		return nil, &ErrDimensionMismatch{Expected: h.dimension, Actual: len(q)}
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if len(h.nodes) == 0 || k <= 0 {
		return nil, nil
	}

	ep := h.descend(q, 0)
	results := h.searchLayer(q, ep, max(efSearch, k), 0)
	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// BruteSearch performs an exhaustive search over all nodes.
func (h *HNSW) BruteSearch(q []float64, k int) ([]Item, error) {
	if len(q) != h.dimension {
		return nil, &ErrDimensionMismatch{Expected: h.dimension, Actual: len(q)}
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	top := queue.NewTopK(k)
	for _, node := range h.nodes {
		top.Push(node.ID, h.opts.DistanceFunc(q, node.Vector))
	}

	return top.Sorted(), nil
}

// link adds a connection from first to second, pruning first's neighbourhood when it overflows.
func (h *HNSW) link(first, second int, level int) {
	maxConnections := h.mmax
	// HNSW allows double the connections for the bottom level (0)
	if level == 0 {
		maxConnections = h.mmax0
	}

	node := h.nodes[first]
	node.Connections[level] = append(node.Connections[level], second)

	if len(node.Connections[level]) <= maxConnections {
		return
	}

	candidates := make([]Item, 0, len(node.Connections[level]))
	for _, id := range node.Connections[level] {
		candidates = append(candidates, Item{Node: id, Distance: h.opts.DistanceFunc(node.Vector, h.nodes[id].Vector)})
	}
	sortItems(candidates)

	var kept []Item
	if h.opts.Heuristic {
		kept = h.selectNeighboursHeuristic(candidates, maxConnections)
	} else {
		kept = selectNeighboursSimple(candidates, maxConnections)
	}

	node.Connections[level] = node.Connections[level][:0]
	for _, item := range kept {
		node.Connections[level] = append(node.Connections[level], item.Node)
	}
}

// searchLayer performs a search in a specified layer of the HNSW graph.
// The result holds at most ef items ascending by distance.
func (h *HNSW) searchLayer(q []float64, ep Item, ef int, level int) []Item {
	visited := bitset.New(uint(len(h.nodes)))
	visited.Set(uint(ep.Node))

	candidates := queue.NewMin(ef)
	candidates.PushItem(ep)

	topCandidates := queue.NewMax(ef + 1)
	topCandidates.PushItem(ep)

	for candidates.Len() > 0 {
		candidate, _ := candidates.PopItem()
		worst, _ := topCandidates.TopItem()
		if candidate.Distance > worst.Distance {
			break
		}

		node := h.nodes[candidate.Node]
		if len(node.Connections) <= level {
			continue
		}

		for _, n := range node.Connections[level] {
			if visited.Test(uint(n)) {
				continue
			}
			visited.Set(uint(n))

			item := Item{Node: n, Distance: h.opts.DistanceFunc(q, h.nodes[n].Vector)}
			worst, _ := topCandidates.TopItem()

			// Add the element to topCandidates if size < EF or it beats the worst
			if topCandidates.Len() < ef || item.Distance < worst.Distance {
				topCandidates.PushItem(item)
				candidates.PushItem(item)
				if topCandidates.Len() > ef {
					topCandidates.PopItem()
				}
			}
		}
	}

	out := make([]Item, topCandidates.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i], _ = topCandidates.PopItem()
	}

	return out
}

// selectNeighboursSimple keeps the m closest candidates.
func selectNeighboursSimple(candidates []Item, m int) []Item {
	if len(candidates) > m {
		return candidates[:m]
	}
	return candidates
}

// selectNeighboursHeuristic prefers candidates closer to the base than to any
// already selected neighbour, then fills up with the pruned ones.
func (h *HNSW) selectNeighboursHeuristic(candidates []Item, m int) []Item {
	if len(candidates) <= m {
		return candidates
	}

	selected := make([]Item, 0, m)
	var pruned []Item

	for _, item := range candidates {
		if len(selected) >= m {
			break
		}

		hit := true
		for _, s := range selected {
			if h.opts.DistanceFunc(h.nodes[s.Node].Vector, h.nodes[item.Node].Vector) < item.Distance {
				hit = false
				break
			}
		}

		if hit {
			selected = append(selected, item)
		} else {
			pruned = append(pruned, item)
		}
	}

	for _, item := range pruned {
		if len(selected) >= m {
			break
		}
		selected = append(selected, item)
	}

	return selected
}

func sortItems(items []Item) {
	slices.SortFunc(items, func(a, b Item) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return a.Node - b.Node
		}
	})
}
