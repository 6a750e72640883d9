package matrix

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/hupe1980/seqloc/model"
)

const (
	// MagicNumber identifies matrix blobs (ASCII: "SQM1").
	MagicNumber = 0x53514D31
	// Version is the current format version.
	Version = 1

	headerSize = 40
)

var (
	ErrInvalidMagic    = errors.New("invalid magic number")
	ErrInvalidVersion  = errors.New("unsupported version")
	ErrChecksum        = errors.New("checksum mismatch")
	ErrTruncated       = errors.New("truncated payload")
	ErrEmpty           = errors.New("empty matrix")
	ErrRaggedText      = errors.New("rows have different lengths")
	ErrCompressionKind = errors.New("unknown compression")
	ErrTooLarge        = errors.New("matrix too large")
)

// Header is the fixed header at the start of every matrix blob.
type Header struct {
	Magic       uint32
	Version     uint16
	Compression Compression
	_           uint8
	Rows        uint32
	Cols        uint32
	RawLen      uint64
	PayloadLen  uint64
	Checksum    uint32
	_           uint32
}

func (h *Header) marshal() []byte {
	var buf bytes.Buffer
	buf.Grow(headerSize)
	// Writing a fixed-size struct into a bytes.Buffer cannot fail.
	_ = binary.Write(&buf, binary.LittleEndian, h)
	return buf.Bytes()
}

func parseHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < headerSize {
		return h, artifactError(ErrTruncated, "header needs %d bytes, got %d", headerSize, len(data))
	}
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &h); err != nil {
		return h, artifactError(err, "read header")
	}
	if h.Magic != MagicNumber {
		return h, artifactError(ErrInvalidMagic, "got %#x", h.Magic)
	}
	if h.Version != Version {
		return h, artifactError(ErrInvalidVersion, "got %d", h.Version)
	}
	if h.Rows == 0 || h.Cols == 0 {
		return h, artifactError(ErrEmpty, "%dx%d", h.Rows, h.Cols)
	}
	hi, cells := bits.Mul64(uint64(h.Rows), uint64(h.Cols))
	if hi != 0 || cells > math.MaxInt/8 {
		return h, artifactError(ErrTooLarge, "%dx%d", h.Rows, h.Cols)
	}
	if h.RawLen != cells*8 {
		return h, artifactError(ErrTruncated, "raw length %d does not match %dx%d", h.RawLen, h.Rows, h.Cols)
	}
	return h, nil
}

// artifactError wraps cause as a persisted-artifact failure.
func artifactError(cause error, format string, args ...any) error {
	return fmt.Errorf("%w: matrix: %w: %s", model.ErrArtifact, cause, fmt.Sprintf(format, args...))
}
