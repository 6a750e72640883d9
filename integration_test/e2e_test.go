package integration_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/seqloc"
	"github.com/hupe1980/seqloc/blobstore"
	"github.com/hupe1980/seqloc/codec"
	"github.com/hupe1980/seqloc/config"
	"github.com/hupe1980/seqloc/feature"
	"github.com/hupe1980/seqloc/model"
	"github.com/hupe1980/seqloc/result"
	"github.com/hupe1980/seqloc/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func localConfig(root string) config.Config {
	cfg := config.Default()
	cfg.Storage = config.Storage{Kind: config.StorageLocal, Root: root}
	cfg.LogLevel = "error"
	return cfg
}

func run(t *testing.T, cfg config.Config) *seqloc.Report {
	t.Helper()
	p, err := seqloc.NewPipeline(cfg, seqloc.WithLogger(seqloc.NoopLogger()))
	require.NoError(t, err)
	rep, err := p.Run(context.Background())
	require.NoError(t, err)
	return rep
}

func TestE2E_RingKey(t *testing.T) {
	const (
		places  = 15
		rings   = 20
		sectors = 60
		shifts  = 3
	)
	ctx := context.Background()
	root := t.TempDir()
	store := blobstore.NewLocalStore(root)
	rng := testutil.NewRNG(11)

	scan := func(grid []float64, offset int) *feature.ScanContext {
		grids := make([]*mat.Dense, shifts)
		for s := range shifts {
			grids[s] = mat.NewDense(rings, sectors, testutil.ShiftColumns(grid, rings, sectors, offset+s*sectors/shifts))
		}
		sc, err := feature.NewScanContext(grids)
		require.NoError(t, err)
		return sc
	}

	for i := range places {
		grid := rng.OccupancyGrid(rings, sectors, 0.2+0.6*rng.Float64())
		require.NoError(t, feature.Store(ctx, store, codec.Default, fmt.Sprintf("ref/%03d.json", i), scan(grid, 0)))
		// The revisit is rotated by one shift step.
		require.NoError(t, feature.Store(ctx, store, codec.Default, fmt.Sprintf("query/%03d.json", i), scan(grid, sectors/shifts)))
	}

	cfg := localConfig(root)
	cfg.FeatureKind = config.FeatureScanContext
	cfg.NonMatchingCost = 0.2
	cfg.Relocalizer = config.Relocalizer{Kind: config.RelocalizerRingKey, K: 3, M: 16, EF: 50, Seed: 1}
	cfg.ExpandedOutput = "expanded.json"

	rep := run(t, cfg)
	require.Len(t, rep.Matches, places)
	for i, m := range rep.Matches {
		assert.Equal(t, model.Match{QueryID: i, RefID: i, State: model.StateReal}, m)
	}

	stored, err := result.ReadMatches(ctx, store, cfg.MatchingResult)
	require.NoError(t, err)
	assert.Equal(t, rep.Matches, stored)

	patch, err := result.ReadPatch(ctx, store, cfg.ExpandedOutput)
	require.NoError(t, err)
	assert.NotEmpty(t, patch)
}

func TestE2E_RingKeyBruteForce(t *testing.T) {
	const (
		rings   = 10
		sectors = 30
	)
	ctx := context.Background()
	root := t.TempDir()
	store := blobstore.NewLocalStore(root)
	rng := testutil.NewRNG(12)

	for i := range 6 {
		grid := rng.OccupancyGrid(rings, sectors, 0.5)
		sc, err := feature.NewScanContext([]*mat.Dense{mat.NewDense(rings, sectors, grid)})
		require.NoError(t, err)
		require.NoError(t, feature.Store(ctx, store, codec.Default, fmt.Sprintf("ref/%03d.json", i), sc))
		require.NoError(t, feature.Store(ctx, store, codec.Default, fmt.Sprintf("query/%03d.json", i), sc))
	}

	cfg := localConfig(root)
	cfg.FeatureKind = config.FeatureScanContext
	cfg.NonMatchingCost = 0.2
	cfg.Relocalizer = config.Relocalizer{Kind: config.RelocalizerRingKey, K: 2, M: 8, EF: 20, Seed: 1, BruteForce: true}

	rep := run(t, cfg)
	assert.Equal(t, 6, rep.Real)
}

// TestE2E_HashingRecovers revisits the first ten places, then jumps twenty
// places ahead. The localizer must notice it is lost and relocalize through
// the hashing retriever.
func TestE2E_HashingRecovers(t *testing.T) {
	const (
		dim  = 256
		jump = 20
	)
	ctx := context.Background()
	root := t.TempDir()
	store := blobstore.NewLocalStore(root)

	refs, revisits := testutil.NewRNG(13).Trajectory(40, dim, 0.01)
	for i, r := range refs {
		require.NoError(t, feature.Store(ctx, store, codec.Default, fmt.Sprintf("ref/%03d.json", i), feature.NewVector(r)))
	}
	for q := range 20 {
		src := q
		if q >= 10 {
			src = q + jump
		}
		require.NoError(t, feature.Store(ctx, store, codec.Default, fmt.Sprintf("query/%03d.json", q), feature.NewVector(revisits[src])))
	}

	cfg := localConfig(root)
	cfg.FanOut = 3
	cfg.LostWindow = 3
	cfg.LostRatio = 0.5
	cfg.Relocalizer = config.Relocalizer{
		Kind:            config.RelocalizerHashing,
		Tables:          25,
		KeySize:         25,
		MultiProbeLevel: 2,
		K:               5,
		Seed:            1,
	}
	cfg.CostOutput = "costs.sqm"

	rep := run(t, cfg)
	require.Len(t, rep.Matches, 20)
	assert.Positive(t, rep.Search.Relocalizations)
	assert.False(t, rep.Lost)

	for _, m := range rep.Matches[:10] {
		assert.Equal(t, m.QueryID, m.RefID)
		assert.True(t, m.Real())
	}
	for _, m := range rep.Matches[15:] {
		assert.Equal(t, m.QueryID+jump, m.RefID, "query %d", m.QueryID)
		assert.True(t, m.Real(), "query %d", m.QueryID)
	}
}
