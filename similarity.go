package seqloc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/hupe1980/seqloc/feature"
	"github.com/hupe1980/seqloc/matrix"
	"github.com/hupe1980/seqloc/model"
	"github.com/panjf2000/ants/v2"
	"gonum.org/v1/gonum/mat"
)

// ComputeSimilarity compares every query descriptor with every reference
// descriptor on a pool of workers and returns the len(queries) x len(refs)
// similarity matrix. workers <= 0 uses runtime.NumCPU().
func ComputeSimilarity(ctx context.Context, cmp feature.Comparator, queries, refs []feature.Feature, workers int) (*mat.Dense, error) {
	if len(queries) == 0 || len(refs) == 0 {
		return nil, fmt.Errorf("%w: similarity needs query and reference descriptors", model.ErrInvalidConfig)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	out := mat.NewDense(len(queries), len(refs), nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for i, q := range queries {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}
			// Rows are disjoint, so workers never write the same element.
			row := make([]float64, len(refs))
			for j, r := range refs {
				s, err := cmp.Similarity(q, r)
				if err != nil {
					fail(fmt.Errorf("query %d, ref %d: %w", i, j, err))
					return
				}
				row[j] = s
			}
			out.SetRow(i, row)
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// WriteSimilarity computes the similarity matrix of the configured sequences
// and stores it under name with the configured compression.
func (p *Pipeline) WriteSimilarity(ctx context.Context, name string, workers int) (*mat.Dense, error) {
	r := &run{store: p.opts.store}
	if r.store == nil {
		s, err := OpenStore(ctx, p.cfg.Storage)
		if err != nil {
			return nil, err
		}
		r.store = s
	}
	r.loader = feature.NewBlobLoader(r.store).WithCodec(p.codec)
	if err := p.listFeatures(ctx, r); err != nil {
		return nil, err
	}
	if len(r.queries) == 0 || len(r.refs) == 0 {
		return nil, fmt.Errorf("%w: no features under %q and %q with extension %q",
			model.ErrArtifact, p.cfg.QueryPrefix, p.cfg.RefPrefix, p.cfg.Extension)
	}

	cmp, err := p.comparator()
	if err != nil {
		return nil, err
	}
	queries, err := feature.LoadAll(ctx, r.loader, r.queries, p.opts.parallelism)
	if err != nil {
		return nil, err
	}
	refs, err := feature.LoadAll(ctx, r.loader, r.refs, p.opts.parallelism)
	if err != nil {
		return nil, err
	}

	sim, err := ComputeSimilarity(ctx, cmp, queries, refs, workers)
	if err != nil {
		return nil, err
	}

	c, err := matrix.ParseCompression(p.cfg.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidConfig, err)
	}
	err = matrix.Write(ctx, r.store, name, sim, c)
	p.log.LogArtifact(ctx, "write", name, err)
	if err != nil {
		return nil, err
	}
	return sim, nil
}
