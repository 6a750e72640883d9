package relocalize

import (
	"context"
	"fmt"

	"github.com/hupe1980/seqloc/model"
)

// FixedWindow returns every reference id within fanOut of the query id.
//
// It assumes query and reference sequences advance at a similar pace.
type FixedWindow struct {
	fanOut  int
	refSize int
}

// NewFixedWindow creates a fixed window retriever.
func NewFixedWindow(fanOut, refSize int) (*FixedWindow, error) {
	if fanOut <= 0 {
		return nil, fmt.Errorf("%w: fan out must be positive, got %d", model.ErrInvalidConfig, fanOut)
	}
	if refSize <= 0 {
		return nil, fmt.Errorf("%w: reference size must be positive, got %d", model.ErrInvalidConfig, refSize)
	}
	return &FixedWindow{fanOut: fanOut, refSize: refSize}, nil
}

// Candidates returns [queryID-fanOut, queryID+fanOut] clipped to [0, refSize-1].
func (w *FixedWindow) Candidates(_ context.Context, queryID int) ([]int, error) {
	lo := max(queryID-w.fanOut, 0)
	hi := min(queryID+w.fanOut, w.refSize-1)
	if lo > hi {
		return nil, nil
	}
	out := make([]int, 0, hi-lo+1)
	for r := lo; r <= hi; r++ {
		out = append(out, r)
	}
	return out, nil
}
