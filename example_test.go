package seqloc_test

import (
	"context"
	"fmt"

	"github.com/hupe1980/seqloc"
	"github.com/hupe1980/seqloc/blobstore"
	"github.com/hupe1980/seqloc/config"
	"github.com/hupe1980/seqloc/matrix"
	"gonum.org/v1/gonum/mat"
)

func ExamplePipeline() {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	costs := mat.NewDense(3, 3, []float64{
		1, 9, 9,
		9, 1, 9,
		9, 9, 1,
	})
	_ = matrix.Write(ctx, store, "costs.sqm", costs, matrix.CompressionNone)

	cfg := config.Default()
	cfg.CostMatrix = "costs.sqm"
	cfg.Relocalizer.Kind = config.RelocalizerFixedWindow

	p, err := seqloc.NewPipeline(cfg, seqloc.WithStore(store), seqloc.WithLogger(seqloc.NoopLogger()))
	if err != nil {
		fmt.Println(err)
		return
	}
	rep, err := p.Run(ctx)
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, m := range rep.Matches {
		fmt.Println(m.QueryID, m.RefID, m.Real())
	}
	// Output:
	// 0 0 true
	// 1 1 true
	// 2 2 true
}
