// Package hnsw implements Hierarchical Navigable Small World graphs over
// float64 vectors.
//
// The graph indexes ring keys for scan context relocalization. Nodes are
// identified by their insertion order, so the caller can map a hit back to
// whatever it inserted.
//
// # Parameters
//
//   - M: Max connections per node above layer 0 (layer 0 allows 2*M)
//   - EF: Construction queue size
//   - Seed: Layer assignment seed, making graphs reproducible
//
// # Reference
//
// Malkov & Yashunin, "Efficient and robust approximate nearest neighbor search
// using Hierarchical Navigable Small World graphs", IEEE TPAMI 2018.
package hnsw
