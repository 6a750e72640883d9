// Package quantization provides binary quantization of descriptor vectors.
//
// A descriptor is rescaled into [0, 255] by min-max normalization and every
// dimension whose truncated level reaches the midpoint becomes a 1 bit:
//
//	bq := quantization.NewBinaryQuantizer(4096)
//	code, err := bq.Encode(descriptor) // 4096 floats -> 64 uint64 words
//	d := quantization.HammingDistance(code, other)
//
// Codes are packed little-endian into uint64 words so that Hamming distance
// is a popcount of XOR.
package quantization
