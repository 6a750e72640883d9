// Package cost answers "what does it cost to pair query q with reference r?".
//
// Two providers are built in:
//
//   - Online computes costs on demand by comparing descriptors. Descriptors
//     are held in bounded FIFO buffers and every computed cost is memoized.
//   - Matrix serves costs from a precomputed cost or similarity matrix.
//
// Both validate ids against their sequence sizes and report violations as
// *model.RangeError.
package cost
