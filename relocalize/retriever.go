package relocalize

import (
	"context"
	"slices"

	"github.com/hupe1980/seqloc/feature"
)

// Retriever proposes reference ids for a query.
type Retriever interface {
	Candidates(ctx context.Context, queryID int) ([]int, error)
}

// QuerySource supplies query descriptors to the index based retrievers.
type QuerySource interface {
	QueryFeature(ctx context.Context, queryID int) (feature.Feature, error)
}

// normalize sorts ids ascending and removes duplicates in place.
func normalize(ids []int) []int {
	slices.Sort(ids)
	return slices.Compact(ids)
}
