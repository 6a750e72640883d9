// Package relocalize proposes reference candidates for a query when the
// localizer has lost track.
//
// Three retrievers are provided:
//
//   - FixedWindow: a window of reference ids around the query id
//   - Hashing: multi-probe LSH over binarized descriptor vectors
//   - RingKey: an HNSW graph over scan context ring keys
//
// Candidates are ascending and deduplicated. An empty result is valid and
// tells the caller that no candidate could be found.
package relocalize
