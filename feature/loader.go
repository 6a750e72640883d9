package feature

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/seqloc/blobstore"
	"github.com/hupe1980/seqloc/codec"
	"github.com/hupe1980/seqloc/model"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Grid is the serialized form of one scan-context grid in row-major order.
type Grid struct {
	Rows   int       `json:"rows"`
	Cols   int       `json:"cols"`
	Values []float64 `json:"values"`
}

// Document is the serialized form of a descriptor.
type Document struct {
	Kind   Kind      `json:"kind"`
	Values []float64 `json:"values,omitempty"`
	Grids  []Grid    `json:"grids,omitempty"`
}

// Decode builds a Feature from a document.
func (d *Document) Decode() (Feature, error) {
	switch d.Kind {
	case KindVector, "":
		if len(d.Values) == 0 {
			return nil, errors.New("vector document has no values")
		}
		return NewVector(d.Values), nil
	case KindScanContext:
		grids := make([]*mat.Dense, len(d.Grids))
		for i, g := range d.Grids {
			if g.Rows <= 0 || g.Cols <= 0 || len(g.Values) != g.Rows*g.Cols {
				return nil, fmt.Errorf("grid %d: %d values do not fill %dx%d", i, len(g.Values), g.Rows, g.Cols)
			}
			grids[i] = mat.NewDense(g.Rows, g.Cols, g.Values)
		}
		return NewScanContext(grids)
	default:
		return nil, fmt.Errorf("unknown kind %q", d.Kind)
	}
}

// Encode converts a built-in Feature into a document.
func Encode(f Feature) (*Document, error) {
	switch v := f.(type) {
	case *Vector:
		return &Document{Kind: KindVector, Values: v.Values()}, nil
	case *ScanContext:
		doc := &Document{Kind: KindScanContext}
		for _, g := range v.Grids() {
			r, c := g.Dims()
			doc.Grids = append(doc.Grids, Grid{Rows: r, Cols: c, Values: mat.DenseCopyOf(g).RawMatrix().Data})
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("feature: cannot encode %T", f)
	}
}

// BlobLoader loads descriptor documents from a blob store.
type BlobLoader struct {
	store blobstore.BlobStore
	codec codec.Codec
}

// NewBlobLoader creates a loader reading from store with the default codec.
func NewBlobLoader(store blobstore.BlobStore) *BlobLoader {
	return &BlobLoader{store: store, codec: codec.Default}
}

// WithCodec returns a loader decoding with c.
func (l *BlobLoader) WithCodec(c codec.Codec) *BlobLoader {
	return &BlobLoader{store: l.store, codec: c}
}

// Load reads and decodes the named descriptor.
// Missing or unparseable documents are reported as model.ErrArtifact.
func (l *BlobLoader) Load(ctx context.Context, name string) (Feature, error) {
	data, err := blobstore.ReadAll(ctx, l.store, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: feature %s not found", model.ErrArtifact, name)
		}
		return nil, fmt.Errorf("feature: load %s: %w", name, err)
	}

	var doc Document
	if err := l.codec.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: feature %s: %w", model.ErrArtifact, name, err)
	}
	f, err := doc.Decode()
	if err != nil {
		return nil, fmt.Errorf("%w: feature %s: %w", model.ErrArtifact, name, err)
	}
	return f, nil
}

// Store encodes f and writes it under name.
func Store(ctx context.Context, store blobstore.BlobStore, c codec.Codec, name string, f Feature) error {
	doc, err := Encode(f)
	if err != nil {
		return err
	}
	data, err := c.Marshal(doc)
	if err != nil {
		return fmt.Errorf("feature: encode %s: %w", name, err)
	}
	return store.Put(ctx, name, data)
}

// List returns the sorted names under prefix that end with ext.
// An empty ext matches every name.
func List(ctx context.Context, store blobstore.BlobStore, prefix, ext string) ([]string, error) {
	names, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("feature: list %s: %w", prefix, err)
	}
	out := names[:0]
	for _, n := range names {
		if strings.HasSuffix(n, ext) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out, nil
}

// LoadAll loads names concurrently with at most parallelism loads in flight.
// The result is index-aligned with names.
func LoadAll(ctx context.Context, l Loader, names []string, parallelism int) ([]Feature, error) {
	out := make([]Feature, len(names))
	g, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, name := range names {
		g.Go(func() error {
			f, err := l.Load(ctx, name)
			if err != nil {
				return err
			}
			out[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
