// Package lsh implements a multi-probe locality sensitive hashing index over
// packed bit vectors.
//
// Each table hashes a code by sampling KeySize fixed bit positions. Queries
// probe the exact bucket and every bucket within MultiProbeLevel bit flips of
// it, union the posting lists and rerank the candidates by Hamming distance.
//
//	ix, _ := lsh.New(256, lsh.DefaultOptions)
//	id, _ := ix.Add(code)
//	hits, _ := ix.Search(query, 5)
package lsh
