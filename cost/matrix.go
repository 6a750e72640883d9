package cost

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/seqloc/blobstore"
	"github.com/hupe1980/seqloc/feature"
	"github.com/hupe1980/seqloc/matrix"
	"github.com/hupe1980/seqloc/model"
	"gonum.org/v1/gonum/mat"
)

// MatrixKind says how stored matrix values are interpreted.
type MatrixKind uint8

const (
	// KindCost means stored values are costs and are returned unchanged.
	KindCost MatrixKind = iota
	// KindSimilarity means stored values are similarities converted with SimilarityToCost.
	KindSimilarity
)

// String returns the name of the kind.
func (k MatrixKind) String() string {
	if k == KindSimilarity {
		return "similarity"
	}
	return "cost"
}

// SimilarityToCost returns 1/|v|, or math.MaxFloat64 when |v| is below feature.MinSimilarity.
func SimilarityToCost(v float64) float64 {
	a := math.Abs(v)
	if a < feature.MinSimilarity {
		return math.MaxFloat64
	}
	return 1 / a
}

// Matrix serves costs from a dense matrix indexed [query][ref].
type Matrix struct {
	kind   MatrixKind
	values *mat.Dense
	rows   int
	cols   int

	// Similarity mode converts lazily; done marks converted cells.
	mu    sync.Mutex
	costs []float64
	done  *bitset.BitSet

	logger  *slog.Logger
	metrics MetricsObserver

	lookups  atomic.Int64
	hits     atomic.Int64
	degraded atomic.Int64
}

// MatrixOption configures a Matrix provider.
type MatrixOption func(*Matrix)

// WithMatrixLogger sets the logger.
func WithMatrixLogger(l *slog.Logger) MatrixOption {
	return func(m *Matrix) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMatrixMetrics sets the metrics observer.
func WithMatrixMetrics(o MetricsObserver) MatrixOption {
	return func(m *Matrix) {
		if o != nil {
			m.metrics = o
		}
	}
}

// NewCostMatrix serves the stored values as costs.
func NewCostMatrix(values *mat.Dense, optFns ...MatrixOption) (*Matrix, error) {
	return newMatrix(KindCost, values, optFns)
}

// NewSimilarityMatrix serves the stored similarities converted to costs.
func NewSimilarityMatrix(values *mat.Dense, optFns ...MatrixOption) (*Matrix, error) {
	return newMatrix(KindSimilarity, values, optFns)
}

func newMatrix(kind MatrixKind, values *mat.Dense, optFns []MatrixOption) (*Matrix, error) {
	if values == nil || values.IsEmpty() {
		return nil, fmt.Errorf("%w: %s matrix is empty", model.ErrInvalidConfig, kind)
	}
	rows, cols := values.Dims()
	m := &Matrix{
		kind:    kind,
		values:  values,
		rows:    rows,
		cols:    cols,
		logger:  slog.Default(),
		metrics: NoopMetricsObserver{},
	}
	if kind == KindSimilarity {
		m.costs = make([]float64, rows*cols)
		m.done = bitset.New(uint(rows * cols))
	}
	for _, fn := range optFns {
		fn(m)
	}
	return m, nil
}

// LoadMatrix reads a persisted matrix and wraps it as a provider of the given kind.
// A missing or corrupt matrix fails with model.ErrArtifact.
func LoadMatrix(ctx context.Context, store blobstore.BlobStore, name string, kind MatrixKind, optFns ...MatrixOption) (*Matrix, error) {
	values, err := matrix.Read(ctx, store, name)
	if err != nil {
		return nil, err
	}
	return newMatrix(kind, values, optFns)
}

// Kind returns how stored values are interpreted.
func (m *Matrix) Kind() MatrixKind { return m.kind }

// QuerySize returns the number of matrix rows.
func (m *Matrix) QuerySize() int { return m.rows }

// RefSize returns the number of matrix columns.
func (m *Matrix) RefSize() int { return m.cols }

// Cost returns the cost of (queryID, refID).
func (m *Matrix) Cost(ctx context.Context, queryID, refID int) (float64, error) {
	if err := model.CheckRange(model.RoleQuery, queryID, m.rows); err != nil {
		return 0, err
	}
	if err := model.CheckRange(model.RoleRef, refID, m.cols); err != nil {
		return 0, err
	}
	m.lookups.Add(1)

	if m.kind == KindCost {
		m.hits.Add(1)
		m.metrics.OnCostLookup(true)
		return m.values.At(queryID, refID), nil
	}

	idx := uint(queryID*m.cols + refID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done.Test(idx) {
		m.hits.Add(1)
		m.metrics.OnCostLookup(true)
		return m.costs[idx], nil
	}
	m.metrics.OnCostLookup(false)

	v := m.values.At(queryID, refID)
	if v < 0 {
		m.degraded.Add(1)
		m.metrics.OnDegraded(DegradedNegativeSimilarity)
		m.logger.WarnContext(ctx, "negative similarity, using its magnitude",
			"query_id", queryID,
			"ref_id", refID,
			"similarity", v,
		)
	}
	c := SimilarityToCost(v)
	if c == math.MaxFloat64 {
		m.degraded.Add(1)
		m.metrics.OnDegraded(DegradedNearZeroSimilarity)
		m.logger.InfoContext(ctx, "suspiciously small similarity",
			"query_id", queryID,
			"ref_id", refID,
			"similarity", v,
		)
	}
	m.costs[idx] = c
	m.done.Set(idx)
	return c, nil
}

// Stats returns activity counters.
func (m *Matrix) Stats() Stats {
	return Stats{
		Lookups:  m.lookups.Load(),
		Hits:     m.hits.Load(),
		Degraded: m.degraded.Load(),
	}
}
