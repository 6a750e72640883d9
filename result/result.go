package result

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/seqloc/blobstore"
	"github.com/hupe1980/seqloc/codec"
	"github.com/hupe1980/seqloc/model"
)

// Record is one matched pair.
type Record struct {
	QueryID int  `json:"query_id"`
	RefID   int  `json:"ref_id"`
	Real    bool `json:"real"`
}

// MatchingResult is the stored form of a path.
type MatchingResult struct {
	Codec   string   `json:"codec"`
	Matches []Record `json:"matches"`
}

// PatchElement is one expanded node with its individual cost.
type PatchElement struct {
	QueryID int     `json:"query_id"`
	RefID   int     `json:"ref_id"`
	Cost    float64 `json:"cost"`
}

// Patch is the stored form of an expansion.
type Patch struct {
	Codec    string         `json:"codec"`
	Elements []PatchElement `json:"elements"`
}

type options struct {
	codec codec.Codec
}

// Option configures reading and writing.
type Option func(*options)

// WithCodec sets the codec used for writing. Defaults to codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

func apply(optFns []Option) options {
	o := options{codec: codec.Default}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// WriteMatches stores one record per match, in the given order.
func WriteMatches(ctx context.Context, store blobstore.BlobStore, name string, matches model.Matches, optFns ...Option) error {
	o := apply(optFns)
	doc := MatchingResult{Codec: o.codec.Name(), Matches: make([]Record, len(matches))}
	for i, m := range matches {
		doc.Matches[i] = Record{QueryID: m.QueryID, RefID: m.RefID, Real: m.Real()}
	}
	return write(ctx, store, name, o.codec, doc)
}

// ReadMatches loads a stored path with the codec it was written with.
func ReadMatches(ctx context.Context, store blobstore.BlobStore, name string) (model.Matches, error) {
	var doc MatchingResult
	if err := read(ctx, store, name, &doc); err != nil {
		return nil, err
	}
	out := make(model.Matches, len(doc.Matches))
	for i, r := range doc.Matches {
		state := model.StateHidden
		if r.Real {
			state = model.StateReal
		}
		out[i] = model.Match{QueryID: r.QueryID, RefID: r.RefID, State: state}
	}
	return out, nil
}

// WritePatch stores the (query, ref, cost) triple of every node.
func WritePatch(ctx context.Context, store blobstore.BlobStore, name string, nodes []model.Node, optFns ...Option) error {
	o := apply(optFns)
	doc := Patch{Codec: o.codec.Name(), Elements: make([]PatchElement, len(nodes))}
	for i, n := range nodes {
		doc.Elements[i] = PatchElement{QueryID: n.QueryID, RefID: n.RefID, Cost: n.Cost}
	}
	return write(ctx, store, name, o.codec, doc)
}

// ReadPatch loads a stored patch.
func ReadPatch(ctx context.Context, store blobstore.BlobStore, name string) ([]PatchElement, error) {
	var doc Patch
	if err := read(ctx, store, name, &doc); err != nil {
		return nil, err
	}
	return doc.Elements, nil
}

func write(ctx context.Context, store blobstore.BlobStore, name string, c codec.Codec, doc any) error {
	data, err := c.Marshal(doc)
	if err != nil {
		return fmt.Errorf("result: encode %s: %w", name, err)
	}
	if err := store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("result: write %s: %w", name, err)
	}
	return nil
}

// read decodes name with the codec recorded in the document.
func read(ctx context.Context, store blobstore.BlobStore, name string, doc any) error {
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return fmt.Errorf("%w: result %s not found", model.ErrArtifact, name)
		}
		return fmt.Errorf("result: read %s: %w", name, err)
	}

	var header struct {
		Codec string `json:"codec"`
	}
	if err := codec.Default.Unmarshal(data, &header); err != nil {
		return fmt.Errorf("%w: result %s: %w", model.ErrArtifact, name, err)
	}
	c, err := codec.ByName(header.Codec)
	if err != nil {
		return fmt.Errorf("%w: result %s: %w", model.ErrArtifact, name, err)
	}
	if err := c.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("%w: result %s: %w", model.ErrArtifact, name, err)
	}
	return nil
}
