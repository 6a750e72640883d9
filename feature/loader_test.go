package feature

import (
	"context"
	"testing"

	"github.com/hupe1980/seqloc/blobstore"
	"github.com/hupe1980/seqloc/codec"
	"github.com/hupe1980/seqloc/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestBlobLoader_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	v := NewVector([]float64{0.5, 0.25, 1})
	sc, err := NewScanContext([]*mat.Dense{
		mat.NewDense(2, 3, []float64{1, 0, 0, 0, 1, 1}),
		mat.NewDense(2, 3, []float64{0, 1, 0, 1, 0, 1}),
	})
	require.NoError(t, err)

	require.NoError(t, Store(ctx, store, codec.Default, "query/0000.json", v))
	require.NoError(t, Store(ctx, store, codec.JSON{}, "query/0001.json", sc))

	loader := NewBlobLoader(store)

	got, err := loader.Load(ctx, "query/0000.json")
	require.NoError(t, err)
	require.IsType(t, &Vector{}, got)
	assert.Equal(t, v.Values(), got.(*Vector).Values())

	got, err = loader.WithCodec(codec.JSON{}).Load(ctx, "query/0001.json")
	require.NoError(t, err)
	require.IsType(t, &ScanContext{}, got)
	require.Equal(t, 2, got.(*ScanContext).Shifts())
	assert.True(t, mat.Equal(sc.Grids()[1], got.(*ScanContext).Grids()[1]))
}

func TestBlobLoader_Errors(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	loader := NewBlobLoader(store)

	_, err := loader.Load(ctx, "missing.json")
	assert.ErrorIs(t, err, model.ErrArtifact)

	require.NoError(t, store.Put(ctx, "garbage.json", []byte("{not json")))
	_, err = loader.Load(ctx, "garbage.json")
	assert.ErrorIs(t, err, model.ErrArtifact)

	require.NoError(t, store.Put(ctx, "bad-grid.json", []byte(`{"kind":"scan-context","grids":[{"rows":2,"cols":2,"values":[1]}]}`)))
	_, err = loader.Load(ctx, "bad-grid.json")
	assert.ErrorIs(t, err, model.ErrArtifact)

	require.NoError(t, store.Put(ctx, "unknown.json", []byte(`{"kind":"sift","values":[1]}`)))
	_, err = loader.Load(ctx, "unknown.json")
	assert.ErrorIs(t, err, model.ErrArtifact)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	for _, n := range []string{"ref/0002.json", "ref/0001.json", "ref/notes.txt", "query/0001.json"} {
		require.NoError(t, store.Put(ctx, n, []byte("{}")))
	}

	names, err := List(ctx, store, "ref/", ".json")
	require.NoError(t, err)
	assert.Equal(t, []string{"ref/0001.json", "ref/0002.json"}, names)

	names, err = List(ctx, store, "ref/", "")
	require.NoError(t, err)
	assert.Len(t, names, 3)
}

func TestLoadAll(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	names := []string{"ref/0.json", "ref/1.json", "ref/2.json"}
	for i, n := range names {
		require.NoError(t, Store(ctx, store, codec.Default, n, NewVector([]float64{float64(i + 1)})))
	}

	got, err := LoadAll(ctx, NewBlobLoader(store), names, 2)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, f := range got {
		assert.Equal(t, []float64{float64(i + 1)}, f.(*Vector).Values())
	}

	_, err = LoadAll(ctx, NewBlobLoader(store), append(names, "ref/missing.json"), 0)
	assert.ErrorIs(t, err, model.ErrArtifact)
}
