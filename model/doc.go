// Package model defines core types used throughout seqloc.
//
// # Identity Types
//
//   - Key: (QueryID, RefID) identity of a graph node
//   - Source: sentinel node (-1, -1) rooting every path
//
// # Data Types
//
//   - Node: a query/reference pairing with individual and accumulated cost
//   - State: REAL or HIDDEN classification of a node on the path
//   - Match: one element of an extracted path
//
// # Errors
//
// The error taxonomy is expressed as sentinels so callers can use errors.Is:
//
//	if errors.Is(err, model.ErrOutOfRange) { ... }
package model
