package cost

import (
	"context"
)

// Provider returns the matching cost of a (query, reference) pair.
// Costs are non-negative; lower means more similar.
type Provider interface {
	Cost(ctx context.Context, queryID, refID int) (float64, error)
	QuerySize() int
	RefSize() int
}

// MetricsObserver receives cost lookup events.
type MetricsObserver interface {
	// OnCostLookup is called for every Cost call; hit reports a memoized answer.
	OnCostLookup(hit bool)
	// OnDegraded is called for degraded-data conditions such as a near-zero similarity.
	OnDegraded(kind string)
}

// NoopMetricsObserver discards all events.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnCostLookup(bool) {}
func (NoopMetricsObserver) OnDegraded(string) {}

// Degraded condition kinds.
const (
	DegradedNearZeroSimilarity = "near_zero_similarity"
	DegradedNegativeSimilarity = "negative_similarity"
)

// Stats reports provider activity.
type Stats struct {
	Lookups     int64
	Hits        int64
	Comparisons int64
	Degraded    int64
}
