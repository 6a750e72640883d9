// Package matrix persists dense cost and similarity matrices.
//
// # Binary Format
//
// A matrix blob is a fixed 40-byte little-endian header followed by the
// payload:
//
//	Magic       uint32  "SQM1"
//	Version     uint16
//	Compression uint8   0=none, 1=lz4, 2=zstd
//	_           uint8
//	Rows        uint32  query count
//	Cols        uint32  reference count
//	RawLen      uint64  uncompressed payload length
//	PayloadLen  uint64  stored payload length
//	Checksum    uint32  CRC32C of the uncompressed payload
//	_           uint32
//
// The uncompressed payload is rows*cols float64 values in row-major order.
// When compression does not pay off the payload is stored raw and the header
// says so.
//
// # Text Format
//
// ReadText accepts whitespace-separated values, one matrix row per line,
// as produced by common numerical tools.
//
// Every decoding failure wraps model.ErrArtifact.
package matrix
