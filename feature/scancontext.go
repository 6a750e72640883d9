package feature

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ScanContext is a polar occupancy descriptor stored once per rotation shift.
// Every grid has the same shape: rows are rings, columns are sectors.
type ScanContext struct {
	grids []*mat.Dense
}

// NewScanContext creates a descriptor from one grid per shift.
func NewScanContext(grids []*mat.Dense) (*ScanContext, error) {
	if len(grids) == 0 {
		return nil, errors.New("scan context: no grids")
	}
	rows, cols := grids[0].Dims()
	if cols == 0 {
		return nil, errors.New("scan context: grid has no columns")
	}
	for i, g := range grids[1:] {
		r, c := g.Dims()
		if r != rows || c != cols {
			return nil, fmt.Errorf("scan context: grid %d is %dx%d, want %dx%d", i+1, r, c, rows, cols)
		}
	}
	return &ScanContext{grids: grids}, nil
}

// Kind returns KindScanContext.
func (s *ScanContext) Kind() Kind { return KindScanContext }

// Grids returns the per-shift grids.
func (s *ScanContext) Grids() []*mat.Dense { return s.grids }

// Shifts returns the number of stored shifts.
func (s *ScanContext) Shifts() int { return len(s.grids) }

// RingKeys returns one ring key per shift.
func (s *ScanContext) RingKeys() [][]float64 {
	keys := make([][]float64, len(s.grids))
	for i, g := range s.grids {
		keys[i] = RingKey(g)
	}
	return keys
}

// RingKey returns, for every row of grid, the fraction of cells greater than zero.
func RingKey(grid mat.Matrix) []float64 {
	rows, cols := grid.Dims()
	key := make([]float64, rows)
	for r := range rows {
		occupied := 0
		for c := range cols {
			if grid.At(r, c) > 0 {
				occupied++
			}
		}
		key[r] = float64(occupied) / float64(cols)
	}
	return key
}

// GridDistance returns the mean over columns of the cosine distance between
// corresponding columns of two equally shaped grids.
func GridDistance(a, b *mat.Dense) (float64, error) {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ra != rb || ca != cb {
		return 0, fmt.Errorf("scan context: grid shapes differ: %dx%d vs %dx%d", ra, ca, rb, cb)
	}
	if ca == 0 {
		return 0, errors.New("scan context: grid has no columns")
	}

	colA := make([]float64, ra)
	colB := make([]float64, rb)
	var sum float64
	for c := range ca {
		mat.Col(colA, c, a)
		mat.Col(colB, c, b)
		sum += CosineDistance(colA, colB)
	}
	return sum / float64(ca), nil
}

// RingKeyDistance returns the minimum cosine distance over all pairs of ring keys.
func RingKeyDistance(a, b [][]float64) float64 {
	best := math.MaxFloat64
	for _, ka := range a {
		for _, kb := range b {
			if d := CosineDistance(ka, kb); d < best {
				best = d
			}
		}
	}
	return best
}

// ScanContextComparator compares scan contexts by the minimum grid distance
// over all shift pairs. The score is already a cost.
type ScanContextComparator struct{}

// Similarity returns the minimum GridDistance over all grid pairs.
func (ScanContextComparator) Similarity(a, b Feature) (float64, error) {
	sa, ok := a.(*ScanContext)
	if !ok {
		return 0, mismatch(a, b)
	}
	sb, ok := b.(*ScanContext)
	if !ok {
		return 0, mismatch(a, b)
	}

	best := math.MaxFloat64
	for _, ga := range sa.grids {
		for _, gb := range sb.grids {
			d, err := GridDistance(ga, gb)
			if err != nil {
				return 0, err
			}
			best = min(best, d)
		}
	}
	return best, nil
}

// ToCost returns the score unchanged.
func (ScanContextComparator) ToCost(s float64) float64 {
	return s
}
