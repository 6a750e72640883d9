package seqloc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/seqloc/blobstore"
	"github.com/hupe1980/seqloc/codec"
	"github.com/hupe1980/seqloc/config"
	"github.com/hupe1980/seqloc/cost"
	"github.com/hupe1980/seqloc/feature"
	"github.com/hupe1980/seqloc/localizer"
	"github.com/hupe1980/seqloc/matrix"
	"github.com/hupe1980/seqloc/model"
	"github.com/hupe1980/seqloc/relocalize"
	"github.com/hupe1980/seqloc/result"
	"github.com/hupe1980/seqloc/successor"
)

// Pipeline runs one localization over the sequences named by a Config.
type Pipeline struct {
	cfg   config.Config
	opts  options
	runID string
	log   *Logger
	codec codec.Codec
}

// Report summarizes a finished run.
type Report struct {
	RunID    string
	Queries  int
	Refs     int
	Matches  model.Matches
	Real     int
	Lost     bool
	Search   localizer.Stats
	Cost     cost.Stats
	Duration time.Duration
}

// NewPipeline validates cfg and prepares a run.
func NewPipeline(cfg config.Config, optFns ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := options{
		logger:           NewTextLogger(ParseLevel(cfg.LogLevel)),
		metricsCollector: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	c := codec.Default
	if cfg.Codec != "" {
		var err error
		if c, err = codec.ByName(cfg.Codec); err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrInvalidConfig, err)
		}
	}

	runID := uuid.NewString()
	return &Pipeline{
		cfg:   cfg,
		opts:  opts,
		runID: runID,
		log:   opts.logger.WithRunID(runID),
		codec: c,
	}, nil
}

// RunID returns the identifier attached to every log line of the run.
func (p *Pipeline) RunID() string { return p.runID }

// run holds the collaborators assembled for one Run.
type run struct {
	store    blobstore.BlobStore
	loader   *feature.BlobLoader
	queries  []string
	refs     []string
	provider cost.Provider
	online   *cost.Online
	obs      observer
}

// Run localizes every query and writes the configured artifacts.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	r := &run{obs: observer{c: p.opts.metricsCollector}}

	r.store = p.opts.store
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
	if err := p.buildProvider(ctx, r); err != nil {
		return nil, err
	}

	retriever, err := p.buildRetriever(ctx, r)
	if err != nil {
		return nil, err
	}

	expOpts := []successor.Option{
		successor.WithLogger(p.log.WithComponent("successor").Logger),
		successor.WithMetrics(r.obs),
	}
	if p.cfg.SimPlaces != "" {
		places, err := p.loadSimilarPlaces(ctx, r.store)
		if err != nil {
			return nil, err
		}
		expOpts = append(expOpts, successor.WithSimilarPlaces(places))
	}
	expander, err := successor.New(r.provider, retriever, p.cfg.FanOut, expOpts...)
	if err != nil {
		return nil, err
	}

	loc, err := localizer.New(expander, p.cfg.ExpansionRate, p.cfg.NonMatchingCost,
		localizer.WithLogger(p.log.WithComponent("localizer").Logger),
		localizer.WithMetrics(r.obs),
		localizer.WithLostWindow(p.cfg.LostWindow, p.cfg.LostRatio),
	)
	if err != nil {
		return nil, err
	}

	n := r.provider.QuerySize()
	if p.cfg.QuerySize > 0 && p.cfg.QuerySize < n {
		n = p.cfg.QuerySize
	}
	p.log.InfoContext(ctx, "localization started",
		"queries", n,
		"refs", r.provider.RefSize(),
		"relocalizer", p.cfg.Relocalizer.Kind,
	)

	lost := false
	for q := range n {
		stepStart := time.Now()
		best, err := loc.Step(ctx)
		if err != nil {
			return nil, fmt.Errorf("seqloc: query %d: %w", q, err)
		}
		nowLost := loc.Lost()
		p.log.LogStep(ctx, best.QueryID, best.RefID, nowLost, time.Since(stepStart))
		if nowLost && !lost {
			p.log.WithQuery(q).LogLost(ctx, q, p.cfg.LostWindow, p.cfg.LostRatio)
		}
		lost = nowLost
	}

	// The path is stored in query order.
	matches := loc.CurrentPath().Reverse()
	if err := result.WriteMatches(ctx, r.store, p.cfg.MatchingResult, matches, result.WithCodec(p.codec)); err != nil {
		p.log.LogArtifact(ctx, "write", p.cfg.MatchingResult, err)
		return nil, err
	}
	p.log.LogArtifact(ctx, "write", p.cfg.MatchingResult, nil)

	if err := p.writeOutputs(ctx, r, loc); err != nil {
		return nil, err
	}

	rep := &Report{
		RunID:    p.runID,
		Queries:  n,
		Refs:     r.provider.RefSize(),
		Matches:  matches,
		Real:     matches.RealCount(),
		Lost:     lost,
		Search:   loc.Stats(),
		Duration: time.Since(start),
	}
	switch pr := r.provider.(type) {
	case *cost.Online:
		rep.Cost = pr.Stats()
	case *cost.Matrix:
		rep.Cost = pr.Stats()
	}

	p.log.InfoContext(ctx, "localization finished",
		"queries", rep.Queries,
		"matches", len(rep.Matches),
		"real", rep.Real,
		"expansions", rep.Search.Expansions,
		"relocalizations", rep.Search.Relocalizations,
		"duration", rep.Duration,
	)
	return rep, nil
}

// listFeatures enumerates the descriptor documents of both sequences.
func (p *Pipeline) listFeatures(ctx context.Context, r *run) error {
	var err error
	if r.queries, err = feature.List(ctx, r.store, p.cfg.QueryPrefix, p.cfg.Extension); err != nil {
		return fmt.Errorf("seqloc: list queries: %w", err)
	}
	if r.refs, err = feature.List(ctx, r.store, p.cfg.RefPrefix, p.cfg.Extension); err != nil {
		return fmt.Errorf("seqloc: list references: %w", err)
	}
	if p.cfg.QuerySize > 0 && p.cfg.QuerySize < len(r.queries) {
		r.queries = r.queries[:p.cfg.QuerySize]
	}
	p.log.DebugContext(ctx, "features listed", "queries", len(r.queries), "refs", len(r.refs))
	return nil
}

func (p *Pipeline) comparator() (feature.Comparator, error) {
	cmp, err := feature.ComparatorFor(feature.Kind(p.cfg.FeatureKind))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidConfig, err)
	}
	return cmp, nil
}

func (p *Pipeline) buildProvider(ctx context.Context, r *run) error {
	var m *cost.Matrix
	if name, kind := p.matrixSource(); name != "" {
		var err error
		m, err = cost.LoadMatrix(ctx, r.store, name, kind,
			cost.WithMatrixLogger(p.log.WithComponent("cost").Logger),
			cost.WithMatrixMetrics(r.obs),
		)
		if err != nil {
			p.log.LogArtifact(ctx, "read", name, err)
			return err
		}
		p.log.LogArtifact(ctx, "read", name, nil)
		if !p.cfg.Precomputed {
			r.provider = m
			return nil
		}
	}

	if len(r.queries) == 0 || len(r.refs) == 0 {
		return fmt.Errorf("%w: no features under %q and %q with extension %q",
			model.ErrArtifact, p.cfg.QueryPrefix, p.cfg.RefPrefix, p.cfg.Extension)
	}
	cmp, err := p.comparator()
	if err != nil {
		return err
	}

	onlineOpts := []cost.OnlineOption{
		cost.WithLogger(p.log.WithComponent("cost").Logger),
		cost.WithMetrics(r.obs),
	}
	if m != nil {
		onlineOpts = append(onlineOpts, cost.WithPrecomputed(m))
	}
	online, err := cost.NewOnline(r.queries, r.refs, r.loader, cmp, p.cfg.BufferSize, onlineOpts...)
	if err != nil {
		return err
	}
	r.provider, r.online = online, online
	return nil
}

func (p *Pipeline) matrixSource() (string, cost.MatrixKind) {
	switch {
	case p.cfg.SimilarityMatrix != "":
		return p.cfg.SimilarityMatrix, cost.KindSimilarity
	case p.cfg.CostMatrix != "":
		return p.cfg.CostMatrix, cost.KindCost
	default:
		return "", cost.KindCost
	}
}

// querySource serves query descriptors to retrievers when costs come from a matrix.
type querySource struct {
	loader feature.Loader
	names  []string
}

func (s querySource) QueryFeature(ctx context.Context, queryID int) (feature.Feature, error) {
	if err := model.CheckRange(model.RoleQuery, queryID, len(s.names)); err != nil {
		return nil, err
	}
	return s.loader.Load(ctx, s.names[queryID])
}

func (p *Pipeline) buildRetriever(ctx context.Context, r *run) (relocalize.Retriever, error) {
	rc := p.cfg.Relocalizer
	if rc.Kind == config.RelocalizerFixedWindow {
		return relocalize.NewFixedWindow(p.cfg.FanOut, r.provider.RefSize())
	}

	if len(r.refs) != r.provider.RefSize() {
		return nil, fmt.Errorf("%w: %s relocalizer needs %d reference features, found %d",
			model.ErrArtifact, rc.Kind, r.provider.RefSize(), len(r.refs))
	}
	var source relocalize.QuerySource = querySource{loader: r.loader, names: r.queries}
	if r.online != nil {
		source = r.online
	}

	start := time.Now()
	refs, err := feature.LoadAll(ctx, r.loader, r.refs, p.opts.parallelism)
	if err != nil {
		p.log.LogTrain(ctx, rc.Kind, len(r.refs), time.Since(start), err)
		return nil, err
	}

	var retriever relocalize.Retriever
	switch rc.Kind {
	case config.RelocalizerHashing:
		h, err := relocalize.NewHashing(source, relocalize.HashingOptions{
			Tables:          rc.Tables,
			KeySize:         rc.KeySize,
			MultiProbeLevel: rc.MultiProbeLevel,
			K:               rc.K,
			Seed:            rc.Seed,
		})
		if err == nil {
			err = h.Train(ctx, refs)
		}
		if err != nil {
			p.log.LogTrain(ctx, rc.Kind, len(refs), time.Since(start), err)
			return nil, err
		}
		retriever = h
	case config.RelocalizerRingKey:
		scans := make([]*feature.ScanContext, len(refs))
		for i, f := range refs {
			sc, ok := f.(*feature.ScanContext)
			if !ok {
				err := fmt.Errorf("%w: reference %s is %s, want %s", feature.ErrKindMismatch, r.refs[i], f.Kind(), feature.KindScanContext)
				p.log.LogTrain(ctx, rc.Kind, len(refs), time.Since(start), err)
				return nil, err
			}
			scans[i] = sc
		}
		rk, err := relocalize.NewRingKey(source, relocalize.RingKeyOptions{
			K:    rc.K,
			M:    rc.M,
			EF:   rc.EF,
			Seed: rc.Seed,
		})
		if err == nil {
			err = rk.Train(ctx, scans)
		}
		if err != nil {
			p.log.LogTrain(ctx, rc.Kind, len(refs), time.Since(start), err)
			return nil, err
		}
		retriever = rk
		if rc.BruteForce {
			retriever = relocalize.NewBruteForce(rk)
		}
	default:
		return nil, fmt.Errorf("%w: unknown relocalizer kind %q", model.ErrInvalidConfig, rc.Kind)
	}

	p.log.LogTrain(ctx, rc.Kind, len(refs), time.Since(start), nil)
	return retriever, nil
}

func (p *Pipeline) loadSimilarPlaces(ctx context.Context, store blobstore.BlobStore) (map[int][]int, error) {
	data, err := blobstore.ReadAll(ctx, store, p.cfg.SimPlaces)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			err = fmt.Errorf("%w: similar places %s not found", model.ErrArtifact, p.cfg.SimPlaces)
		}
		p.log.LogArtifact(ctx, "read", p.cfg.SimPlaces, err)
		return nil, err
	}
	places, err := successor.LoadSimilarPlaces(bytes.NewReader(data))
	p.log.LogArtifact(ctx, "read", p.cfg.SimPlaces, err)
	return places, err
}

// writeOutputs persists the optional estimated-cost matrix and expanded patch.
func (p *Pipeline) writeOutputs(ctx context.Context, r *run, loc *localizer.Localizer) error {
	if name := p.cfg.CostOutput; name != "" {
		if r.online == nil {
			p.log.WarnContext(ctx, "cost output skipped, costs come from a matrix", "name", name)
		} else if est := r.online.Estimated(); est != nil {
			c, err := matrix.ParseCompression(p.cfg.Compression)
			if err != nil {
				return fmt.Errorf("%w: %w", model.ErrInvalidConfig, err)
			}
			err = matrix.Write(ctx, r.store, name, est, c)
			p.log.LogArtifact(ctx, "write", name, err)
			if err != nil {
				return err
			}
		}
	}

	if name := p.cfg.ExpandedOutput; name != "" {
		err := loc.WriteOutExpanded(ctx, r.store, name, result.WithCodec(p.codec))
		p.log.LogArtifact(ctx, "write", name, err)
		if err != nil {
			return err
		}
	}
	return nil
}
