package localizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/seqloc/blobstore"
	"github.com/hupe1980/seqloc/model"
	"github.com/hupe1980/seqloc/result"
)

// Lost window defaults: lost when more than 80% of the last 5 matches are hidden.
const (
	DefaultLostWindow = 5
	DefaultLostRatio  = 0.8
)

// Expander produces successors of a node.
type Expander interface {
	// Successors returns the regular successors of a tracked node.
	Successors(ctx context.Context, node model.Node) ([]model.Node, error)
	// SuccessorsIfLost returns relocalization successors of node.
	SuccessorsIfLost(ctx context.Context, node model.Node) ([]model.Node, error)
}

// Localizer is an online sequence matcher.
//
// A Localizer is not safe for concurrent use.
type Localizer struct {
	expander        Expander
	expansionRate   float64
	nonMatchingCost float64
	lostWindow      int
	lostRatio       float64

	graph    *graph
	frontier frontier
	best     model.Key
	lost     bool
	recent   []model.Key
	next     int

	logger  *slog.Logger
	metrics MetricsObserver
	stats   Stats
}

// Option configures a Localizer.
type Option func(*Localizer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(loc *Localizer) {
		if l != nil {
			loc.logger = l
		}
	}
}

// WithMetrics sets the metrics observer.
func WithMetrics(m MetricsObserver) Option {
	return func(loc *Localizer) {
		if m != nil {
			loc.metrics = m
		}
	}
}

// WithLostWindow sets the number of recent matches inspected and the hidden
// ratio above which the localizer considers itself lost.
func WithLostWindow(n int, ratio float64) Option {
	return func(loc *Localizer) {
		loc.lostWindow = n
		loc.lostRatio = ratio
	}
}

// New creates a localizer. expansionRate must be in (0, 1]; smaller values
// prune less. Matches whose cost exceeds nonMatchingCost are hidden.
func New(expander Expander, expansionRate, nonMatchingCost float64, optFns ...Option) (*Localizer, error) {
	if expander == nil {
		return nil, fmt.Errorf("%w: localizer needs an expander", model.ErrInvalidConfig)
	}
	if !(expansionRate > 0 && expansionRate <= 1) {
		return nil, fmt.Errorf("%w: expansion rate must be in (0,1], got %g", model.ErrInvalidConfig, expansionRate)
	}
	if !(nonMatchingCost > 0) {
		return nil, fmt.Errorf("%w: non-matching cost must be positive, got %g", model.ErrInvalidConfig, nonMatchingCost)
	}

	loc := &Localizer{
		expander:        expander,
		expansionRate:   expansionRate,
		nonMatchingCost: nonMatchingCost,
		lostWindow:      DefaultLostWindow,
		lostRatio:       DefaultLostRatio,
		graph:           newGraph(),
		best:            model.SourceKey,
		lost:            true,
		logger:          slog.Default(),
		metrics:         NoopMetricsObserver{},
	}
	for _, fn := range optFns {
		fn(loc)
	}
	if loc.lostWindow <= 0 || loc.lostRatio < 0 || loc.lostRatio > 1 {
		return nil, fmt.Errorf("%w: invalid lost window %d/%g", model.ErrInvalidConfig, loc.lostWindow, loc.lostRatio)
	}
	loc.frontier.push(model.SourceKey, 0)
	return loc, nil
}

// FindMatchesTill processes every query below n that was not processed yet
// and returns the current path, most recent first.
func (l *Localizer) FindMatchesTill(ctx context.Context, n int) (model.Matches, error) {
	if n < 0 {
		return nil, &model.RangeError{Role: model.RoleQuery, ID: n, Size: l.next}
	}
	for l.next < n {
		if _, err := l.Step(ctx); err != nil {
			return nil, err
		}
	}
	return l.CurrentPath(), nil
}

// Step processes the next query and returns the new best hypothesis.
func (l *Localizer) Step(ctx context.Context) (model.Node, error) {
	if err := l.processQuery(ctx, l.next); err != nil {
		return model.Node{}, err
	}
	return l.Best(), nil
}

// Processed returns the number of processed queries.
func (l *Localizer) Processed() int { return l.next }

// Lost reports whether the next query will be processed in lost mode.
func (l *Localizer) Lost() bool { return l.lost }

func (l *Localizer) processQuery(ctx context.Context, q int) error {
	start := time.Now()
	if q == 0 {
		l.lost = true
	}
	relocalized := l.lost

	var err error
	if l.lost {
		err = l.relocalize(ctx)
	} else {
		err = l.track(ctx, q)
	}
	if err != nil {
		return fmt.Errorf("localizer: query %d: %w", q, err)
	}

	if l.frontier.Len() == 0 {
		return fmt.Errorf("localizer: query %d: %w: frontier is empty", q, model.ErrInvariant)
	}

	l.lost = l.IsLost(l.lostWindow, l.lostRatio)
	if l.lost {
		l.stats.LostDetections++
		l.logger.InfoContext(ctx, "lost localization", "query_id", q)
	}
	l.next = q + 1

	best := l.Best()
	l.logger.DebugContext(ctx, "matched query",
		"query_id", q,
		"best", best.Key().String(),
		"acc_cost", best.AccCost,
		"relocalized", relocalized,
		"frontier", l.frontier.Len(),
	)
	l.metrics.OnStep(relocalized, l.lost, time.Since(start))
	return nil
}

// relocalize discards the frontier and commits the single most prominent
// relocalization successor of the best hypothesis.
func (l *Localizer) relocalize(ctx context.Context) error {
	l.frontier.reset()
	l.stats.Relocalizations++

	parent, _ := l.graph.get(l.best)
	parent.expanded = true

	succ, err := l.expander.SuccessorsIfLost(ctx, parent.node)
	if err != nil {
		return err
	}
	if len(succ) == 0 {
		return fmt.Errorf("%w: no relocalization successors for %v", model.ErrInvariant, l.best)
	}

	prominent := prominentSuccessor(succ)
	l.logger.InfoContext(ctx, "relocalized",
		"query_id", prominent.QueryID,
		"ref_id", prominent.RefID,
		"candidates", len(succ),
	)

	committed := []model.Node{prominent}
	l.updateGraph(l.best, committed)
	l.updateSearch(committed)
	l.setRecent(committed)
	return nil
}

// track expands frontier nodes until a node of row q-1 has been expanded.
func (l *Localizer) track(ctx context.Context, q int) error {
	for {
		if l.frontier.Len() == 0 {
			return fmt.Errorf("%w: frontier exhausted before row %d was expanded", model.ErrInvariant, q-1)
		}
		e := l.frontier.pop()

		v, ok := l.graph.get(e.key)
		if !ok || v.expanded || v.node.AccCost != e.acc {
			l.stats.StaleEntries++
			continue
		}
		if v.node.QueryID >= q {
			return fmt.Errorf("%w: node %v is ahead of query %d", model.ErrInvariant, e.key, q)
		}

		worth, err := l.worthExpanding(v)
		if err != nil {
			return err
		}
		if !worth {
			l.stats.Pruned++
			l.metrics.OnPrune()
			continue
		}

		succ, err := l.expander.Successors(ctx, v.node)
		if err != nil {
			return err
		}
		v.expanded = true
		l.stats.Expansions++

		l.updateGraph(e.key, succ)
		l.updateSearch(succ)
		l.setRecent(succ)

		if v.node.QueryID == q-1 {
			return nil
		}
	}
}

// worthExpanding reports whether v could still beat the best hypothesis.
func (l *Localizer) worthExpanding(v *vertex) (bool, error) {
	key := v.node.Key()
	if key == model.SourceKey || key == l.best {
		return true, nil
	}
	best := l.Best()
	rowDist := best.QueryID - v.node.QueryID
	if rowDist < 0 {
		return false, fmt.Errorf("%w: node %v is ahead of the best hypothesis %v", model.ErrInvariant, key, l.best)
	}
	potential := v.node.AccCost + float64(rowDist)*l.meanPathCost()*l.expansionRate
	return potential < best.AccCost, nil
}

// meanPathCost is the mean individual cost along the best path, 0 for an empty path.
func (l *Localizer) meanPathCost() float64 {
	var sum float64
	n := 0
	l.graph.walk(l.best, func(v *vertex) bool {
		sum += v.node.Cost
		n++
		return true
	})
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// updateGraph records successors as children of parent. A visited child
// reached more cheaply is moved under parent and the accumulated costs of all
// of its descendants are recomputed from their parents.
func (l *Localizer) updateGraph(parent model.Key, succ []model.Node) {
	p, _ := l.graph.get(parent)
	if len(succ) == 0 {
		l.logger.Warn("no successors to add to the graph", "parent", parent.String())
		return
	}

	for _, child := range succ {
		acc := p.node.AccCost + child.Cost
		v, visited := l.graph.get(child.Key())
		if !visited {
			l.graph.attach(parent, child, acc)
			l.frontier.push(child.Key(), acc)
			continue
		}
		if acc >= v.node.AccCost {
			continue
		}

		l.graph.reparent(v, parent, acc)
		l.stats.Relaxations++
		l.metrics.OnRelaxation()
		if !v.expanded {
			l.frontier.push(v.node.Key(), acc)
		}
		l.graph.descendants(v.node.Key(), func(d *vertex) {
			up, _ := l.graph.get(d.parent)
			d.node.AccCost = up.node.AccCost + d.node.Cost
			if !d.expanded {
				l.frontier.push(d.node.Key(), d.node.AccCost)
			}
		})
	}
}

// updateSearch promotes the prominent successor to best hypothesis if it
// reaches a later query, or the same query at no higher accumulated cost.
func (l *Localizer) updateSearch(succ []model.Node) {
	if len(succ) == 0 {
		return
	}
	candidate, _ := l.graph.get(prominentSuccessor(succ).Key())
	best, _ := l.graph.get(l.best)

	switch {
	case candidate.node.QueryID > best.node.QueryID:
		l.best = candidate.node.Key()
	case candidate.node.QueryID == best.node.QueryID && candidate.node.AccCost <= best.node.AccCost:
		l.best = candidate.node.Key()
	}
}

// prominentSuccessor returns the successor with the lowest individual cost,
// ties broken by the lowest reference id.
func prominentSuccessor(succ []model.Node) model.Node {
	best := succ[0]
	for _, s := range succ[1:] {
		if s.Cost < best.Cost || (s.Cost == best.Cost && s.RefID < best.RefID) {
			best = s
		}
	}
	return best
}

func (l *Localizer) setRecent(succ []model.Node) {
	l.recent = l.recent[:0]
	for _, s := range succ {
		l.recent = append(l.recent, s.Key())
	}
}

// Best returns the current best hypothesis with its accumulated cost.
func (l *Localizer) Best() model.Node {
	v, _ := l.graph.get(l.best)
	return v.node
}

// Expanded returns the nodes created by the most recent expansion.
func (l *Localizer) Expanded() []model.Node {
	out := make([]model.Node, 0, len(l.recent))
	for _, k := range l.recent {
		if v, ok := l.graph.get(k); ok {
			out = append(out, v.node)
		}
	}
	return out
}

// CurrentPath returns the path from the best hypothesis back to the source.
func (l *Localizer) CurrentPath() model.Matches {
	return l.LastMatches(-1)
}

// LastMatches returns at most n matches of the current path, most recent
// first. A negative n returns the whole path.
func (l *Localizer) LastMatches(n int) model.Matches {
	var out model.Matches
	l.graph.walk(l.best, func(v *vertex) bool {
		if n >= 0 && len(out) >= n {
			return false
		}
		out = append(out, model.Match{
			QueryID: v.node.QueryID,
			RefID:   v.node.RefID,
			State:   model.Classify(v.node.Cost, l.nonMatchingCost),
		})
		return true
	})
	return out
}

// IsLost reports whether more than ratio of the last n matches are hidden.
// Paths shorter than n are never lost.
func (l *Localizer) IsLost(n int, ratio float64) bool {
	path := l.LastMatches(n)
	if len(path) < n || len(path) == 0 {
		return false
	}
	hidden := len(path) - path.RealCount()
	return float64(hidden)/float64(len(path)) > ratio
}

// WriteOutExpanded stores the most recently expanded nodes as a patch.
func (l *Localizer) WriteOutExpanded(ctx context.Context, store blobstore.BlobStore, name string, optFns ...result.Option) error {
	return result.WritePatch(ctx, store, name, l.Expanded(), optFns...)
}

// Stats returns search counters.
func (l *Localizer) Stats() Stats {
	s := l.stats
	s.Nodes = l.graph.len()
	s.Frontier = l.frontier.Len()
	return s
}
