package successor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strconv"

	"github.com/hupe1980/seqloc/cost"
	"github.com/hupe1980/seqloc/model"
	"github.com/hupe1980/seqloc/relocalize"
)

// MetricsObserver receives expansion events.
type MetricsObserver interface {
	// OnExpansion is called with the number of regular successors produced.
	OnExpansion(successors int)
	// OnRelocalization is called with the number of retriever candidates; zero means none were found.
	OnRelocalization(candidates int)
}

// NoopMetricsObserver discards all events.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnExpansion(int)      {}
func (NoopMetricsObserver) OnRelocalization(int) {}

// Expander produces the successors of a node.
type Expander struct {
	provider  cost.Provider
	retriever relocalize.Retriever
	fanOut    int
	similar   map[int][]int

	logger  *slog.Logger
	metrics MetricsObserver
}

// Option configures an Expander.
type Option func(*Expander)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Expander) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics observer.
func WithMetrics(m MetricsObserver) Option {
	return func(e *Expander) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithSimilarPlaces registers reference places that look alike. The mapping
// is used as given; LoadSimilarPlaces builds a symmetric one.
func WithSimilarPlaces(places map[int][]int) Option {
	return func(e *Expander) {
		e.similar = places
	}
}

// New creates an expander.
func New(provider cost.Provider, retriever relocalize.Retriever, fanOut int, optFns ...Option) (*Expander, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: expander needs a cost provider", model.ErrInvalidConfig)
	}
	if retriever == nil {
		return nil, fmt.Errorf("%w: expander needs a retriever", model.ErrInvalidConfig)
	}
	if fanOut <= 0 {
		return nil, fmt.Errorf("%w: fan out must be positive, got %d", model.ErrInvalidConfig, fanOut)
	}

	e := &Expander{
		provider:  provider,
		retriever: retriever,
		fanOut:    fanOut,
		logger:    slog.Default(),
		metrics:   NoopMetricsObserver{},
	}
	for _, fn := range optFns {
		fn(e)
	}
	return e, nil
}

// FanOut returns the configured fan out.
func (e *Expander) FanOut() int { return e.fanOut }

// Successors returns the regular successors of node, sorted by reference id.
func (e *Expander) Successors(ctx context.Context, node model.Node) ([]model.Node, error) {
	if node.IsSource() {
		return nil, fmt.Errorf("%w: the source node has no regular successors", model.ErrInvariant)
	}
	if node.QueryID < 0 || node.RefID < 0 {
		return nil, fmt.Errorf("%w: invalid node %v", model.ErrOutOfRange, node.Key())
	}

	refs := make(map[int]struct{})
	e.window(refs, node.RefID)
	for _, p := range e.similar[node.RefID] {
		e.window(refs, p)
	}

	succ, err := e.costed(ctx, node.QueryID+1, refs)
	if err != nil {
		return nil, err
	}
	e.metrics.OnExpansion(len(succ))
	return succ, nil
}

func (e *Expander) window(refs map[int]struct{}, refID int) {
	lo := max(refID-e.fanOut, 0)
	hi := min(refID+e.fanOut, e.provider.RefSize()-1)
	for r := lo; r <= hi; r++ {
		refs[r] = struct{}{}
	}
}

func (e *Expander) costed(ctx context.Context, queryID int, refs map[int]struct{}) ([]model.Node, error) {
	ids := slices.Sorted(maps.Keys(refs))
	out := make([]model.Node, 0, len(ids))
	for _, r := range ids {
		c, err := e.provider.Cost(ctx, queryID, r)
		if err != nil {
			return nil, err
		}
		out = append(out, model.NewNode(queryID, r, c))
	}
	return out, nil
}

// SuccessorsIfLost asks the retriever for candidates of the next query. Without
// candidates a single successor keeps the reference id of node, or 0 for the source.
func (e *Expander) SuccessorsIfLost(ctx context.Context, node model.Node) ([]model.Node, error) {
	queryID := node.QueryID + 1
	candidates, err := e.retriever.Candidates(ctx, queryID)
	if err != nil {
		return nil, err
	}
	e.metrics.OnRelocalization(len(candidates))

	refs := make(map[int]struct{}, max(len(candidates), 1))
	if len(candidates) == 0 {
		refID := max(node.RefID, 0)
		e.logger.WarnContext(ctx, "no relocalization candidates, propagating current place",
			"query_id", queryID,
			"ref_id", refID,
		)
		refs[refID] = struct{}{}
	}
	for _, c := range candidates {
		refs[c] = struct{}{}
	}
	return e.costed(ctx, queryID, refs)
}

// LoadSimilarPlaces parses whitespace separated "from to" reference id pairs
// and registers every pair in both directions.
func LoadSimilarPlaces(r io.Reader) (map[int][]int, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	var ids []int
	for sc.Scan() {
		id, err := strconv.Atoi(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("%w: similar places: %w", model.ErrArtifact, err)
		}
		if id < 0 {
			return nil, fmt.Errorf("%w: similar places: negative id %d", model.ErrArtifact, id)
		}
		ids = append(ids, id)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: similar places: %w", model.ErrArtifact, err)
	}
	if len(ids)%2 != 0 {
		return nil, fmt.Errorf("%w: similar places: unpaired id %d", model.ErrArtifact, ids[len(ids)-1])
	}

	sets := make(map[int]map[int]struct{})
	add := func(from, to int) {
		if sets[from] == nil {
			sets[from] = make(map[int]struct{})
		}
		sets[from][to] = struct{}{}
	}
	for i := 0; i < len(ids); i += 2 {
		add(ids[i], ids[i+1])
		add(ids[i+1], ids[i])
	}

	places := make(map[int][]int, len(sets))
	for from, to := range sets {
		places[from] = slices.Sorted(maps.Keys(to))
	}
	return places, nil
}
