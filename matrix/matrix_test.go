package matrix

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/hupe1980/seqloc/blobstore"
	"github.com/hupe1980/seqloc/model"
	"github.com/hupe1980/seqloc/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestEncodeDecode(t *testing.T) {
	rng := testutil.NewRNG(42)
	random := mat.NewDense(7, 11, rng.UniformVector(77))

	// A banded matrix is highly compressible.
	banded := mat.NewDense(64, 64, nil)
	for i := range 64 {
		banded.Set(i, i, 0.5)
	}
	banded.Set(3, 5, math.MaxFloat64)
	banded.Set(4, 5, math.NaN())

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		for name, m := range map[string]*mat.Dense{"random": random, "banded": banded} {
			t.Run(c.String()+"/"+name, func(t *testing.T) {
				data, err := Encode(m, c)
				require.NoError(t, err)

				got, err := Decode(data)
				require.NoError(t, err)

				r, cc := got.Dims()
				wr, wc := m.Dims()
				require.Equal(t, wr, r)
				require.Equal(t, wc, cc)
				for i := range r {
					for j := range cc {
						want := m.At(i, j)
						if math.IsNaN(want) {
							assert.True(t, math.IsNaN(got.At(i, j)))
							continue
						}
						assert.Equal(t, want, got.At(i, j))
					}
				}
			})
		}
	}
}

func TestEncode_CompressionFallback(t *testing.T) {
	banded := mat.NewDense(64, 64, nil)
	data, err := Encode(banded, CompressionZSTD)
	require.NoError(t, err)
	h, err := parseHeader(data)
	require.NoError(t, err)
	assert.Equal(t, CompressionZSTD, h.Compression)
	assert.Less(t, h.PayloadLen, h.RawLen)

	// Random doubles do not compress and are stored raw.
	random := mat.NewDense(8, 8, testutil.NewRNG(1).UniformVector(64))
	data, err = Encode(random, CompressionLZ4)
	require.NoError(t, err)
	h, err = parseHeader(data)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, h.Compression)
}

func TestDecode_Corruption(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	data, err := Encode(m, CompressionNone)
	require.NoError(t, err)

	t.Run("Checksum", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[len(bad)-1] ^= 0xff
		_, err := Decode(bad)
		assert.ErrorIs(t, err, ErrChecksum)
		assert.ErrorIs(t, err, model.ErrArtifact)
		assert.ErrorIs(t, err, model.ErrInvalidConfig)
	})

	t.Run("Magic", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[0] = 'X'
		_, err := Decode(bad)
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := Decode(data[:len(data)-3])
		assert.ErrorIs(t, err, ErrTruncated)

		_, err = Decode(data[:10])
		assert.ErrorIs(t, err, ErrTruncated)
	})
}

func TestDecode_OversizedHeader(t *testing.T) {
	for name, h := range map[string]Header{
		"cells overflow int":  {Rows: 1 << 31, Cols: 1 << 30},
		"max dims":            {Rows: math.MaxUint32, Cols: math.MaxUint32},
		"raw without payload": {Rows: 1 << 16, Cols: 1 << 16, RawLen: 1 << 35},
		"lz4 expansion":       {Compression: CompressionLZ4, Rows: 1 << 16, Cols: 1 << 16, RawLen: 1 << 35, PayloadLen: 4},
		"zstd frame size":     {Compression: CompressionZSTD, Rows: 1 << 16, Cols: 1 << 16, RawLen: 1 << 35, PayloadLen: 4},
	} {
		t.Run(name, func(t *testing.T) {
			h.Magic = MagicNumber
			h.Version = Version
			data := append(h.marshal(), 0, 0, 0, 0)

			var err error
			require.NotPanics(t, func() { _, err = Decode(data) })
			assert.ErrorIs(t, err, model.ErrArtifact)
		})
	}

	h := Header{Magic: MagicNumber, Version: Version, Rows: 1 << 31, Cols: 1 << 30}
	_, err := Decode(h.marshal())
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestEncode_Empty(t *testing.T) {
	_, err := Encode(&mat.Dense{}, CompressionNone)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestReadWrite(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})

	require.NoError(t, Write(ctx, store, "costs.sqm", m, CompressionZSTD))
	got, err := Read(ctx, store, "costs.sqm")
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, got))

	_, err = Read(ctx, store, "missing.sqm")
	assert.ErrorIs(t, err, model.ErrArtifact)
}

func TestText(t *testing.T) {
	m, err := ReadText(strings.NewReader("1 2 3\n\n4 5 6.5\n"))
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 6.5, m.At(1, 2))

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, m))
	assert.Equal(t, "1 2 3\n4 5 6.5\n", buf.String())

	_, err = ReadText(strings.NewReader("1 2\n3\n"))
	assert.ErrorIs(t, err, ErrRaggedText)

	_, err = ReadText(strings.NewReader("1 x\n"))
	assert.ErrorIs(t, err, model.ErrArtifact)

	_, err = ReadText(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, CompressionZSTD, c)

	_, err = ParseCompression("brotli")
	assert.ErrorIs(t, err, ErrCompressionKind)
}
