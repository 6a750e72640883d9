package matrix

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/seqloc/blobstore"
	"github.com/hupe1980/seqloc/internal/hash"
	"github.com/hupe1980/seqloc/model"
	"gonum.org/v1/gonum/mat"
)

// Encode serializes m with the requested compression.
func Encode(m mat.Matrix, c Compression) ([]byte, error) {
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("matrix: %w", ErrEmpty)
	}

	raw := make([]byte, rows*cols*8)
	off := 0
	for i := range rows {
		for j := range cols {
			binary.LittleEndian.PutUint64(raw[off:], math.Float64bits(m.At(i, j)))
			off += 8
		}
	}

	payload, applied, err := compress(raw, c)
	if err != nil {
		return nil, fmt.Errorf("matrix: compress: %w", err)
	}

	h := Header{
		Magic:       MagicNumber,
		Version:     Version,
		Compression: applied,
		Rows:        uint32(rows),
		Cols:        uint32(cols),
		RawLen:      uint64(len(raw)),
		PayloadLen:  uint64(len(payload)),
		Checksum:    hash.CRC32C(raw),
	}

	out := make([]byte, 0, headerSize+len(payload))
	out = append(out, h.marshal()...)
	return append(out, payload...), nil
}

// Decode parses a matrix blob and verifies its checksum.
func Decode(data []byte) (*mat.Dense, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	body := data[headerSize:]
	if uint64(len(body)) < h.PayloadLen {
		return nil, artifactError(ErrTruncated, "payload needs %d bytes, got %d", h.PayloadLen, len(body))
	}

	if err := checkRawLen(h); err != nil {
		return nil, err
	}

	raw, err := decompress(body[:h.PayloadLen], h.Compression, int(h.RawLen))
	if err != nil {
		return nil, artifactError(err, "decompress %s payload", h.Compression)
	}
	if uint64(len(raw)) != h.RawLen {
		return nil, artifactError(ErrTruncated, "raw payload has %d bytes, want %d", len(raw), h.RawLen)
	}
	if sum := hash.CRC32C(raw); sum != h.Checksum {
		return nil, artifactError(ErrChecksum, "got %#x, want %#x", sum, h.Checksum)
	}

	values := make([]float64, int(h.Rows)*int(h.Cols))
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return mat.NewDense(int(h.Rows), int(h.Cols), values), nil
}

// checkRawLen rejects headers whose raw length the payload cannot produce.
func checkRawLen(h Header) error {
	switch h.Compression {
	case CompressionNone:
		if h.PayloadLen != h.RawLen {
			return artifactError(ErrTruncated, "raw payload has %d bytes, want %d", h.PayloadLen, h.RawLen)
		}
	case CompressionLZ4:
		if h.PayloadLen == 0 || h.RawLen/lz4MaxRatio > h.PayloadLen {
			return artifactError(ErrTruncated, "%d lz4 bytes cannot expand to %d", h.PayloadLen, h.RawLen)
		}
	case CompressionZSTD:
		if h.PayloadLen == 0 {
			return artifactError(ErrTruncated, "empty zstd payload")
		}
	}
	return nil
}

// Write encodes m and stores it atomically under name.
func Write(ctx context.Context, store blobstore.BlobStore, name string, m mat.Matrix, c Compression) error {
	data, err := Encode(m, c)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("matrix: write %s: %w", name, err)
	}
	return nil
}

// Read loads the matrix stored under name.
// A missing blob is reported as model.ErrArtifact.
func Read(ctx context.Context, store blobstore.BlobStore, name string) (*mat.Dense, error) {
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: matrix %s not found", model.ErrArtifact, name)
		}
		return nil, fmt.Errorf("matrix: read %s: %w", name, err)
	}
	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}
