package seqloc

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/seqloc/cost"
	"github.com/hupe1980/seqloc/localizer"
	"github.com/hupe1980/seqloc/successor"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordStep is called after each processed query.
	RecordStep(relocalized, lost bool, duration time.Duration)

	// RecordRelocalization is called with the number of retriever candidates.
	RecordRelocalization(candidates int)

	// RecordExpansion is called with the number of successors of an expanded node.
	RecordExpansion(successors int)

	// RecordCostLookup is called for every cost lookup; hit reports a memoized answer.
	RecordCostLookup(hit bool)

	// RecordDegraded is called for degraded-data conditions.
	RecordDegraded(kind string)

	// RecordPrune is called for every frontier node discarded as not worth expanding.
	RecordPrune()

	// RecordRelaxation is called when a cheaper path to a visited node is found.
	RecordRelaxation()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordStep(bool, bool, time.Duration) {}
func (NoopMetricsCollector) RecordRelocalization(int)             {}
func (NoopMetricsCollector) RecordExpansion(int)                  {}
func (NoopMetricsCollector) RecordCostLookup(bool)                {}
func (NoopMetricsCollector) RecordDegraded(string)                {}
func (NoopMetricsCollector) RecordPrune()                         {}
func (NoopMetricsCollector) RecordRelaxation()                    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	StepCount            atomic.Int64
	StepTotalNanos       atomic.Int64
	LostSteps            atomic.Int64
	RelocalizedSteps     atomic.Int64
	RelocalizationCount  atomic.Int64
	EmptyRelocalizations atomic.Int64
	ExpansionCount       atomic.Int64
	SuccessorCount       atomic.Int64
	CostLookups          atomic.Int64
	CostHits             atomic.Int64
	DegradedCount        atomic.Int64
	PruneCount           atomic.Int64
	RelaxationCount      atomic.Int64
}

// RecordStep implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStep(relocalized, lost bool, duration time.Duration) {
	b.StepCount.Add(1)
	b.StepTotalNanos.Add(duration.Nanoseconds())
	if relocalized {
		b.RelocalizedSteps.Add(1)
	}
	if lost {
		b.LostSteps.Add(1)
	}
}

// RecordRelocalization implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRelocalization(candidates int) {
	b.RelocalizationCount.Add(1)
	if candidates == 0 {
		b.EmptyRelocalizations.Add(1)
	}
}

// RecordExpansion implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExpansion(successors int) {
	b.ExpansionCount.Add(1)
	b.SuccessorCount.Add(int64(successors))
}

// RecordCostLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCostLookup(hit bool) {
	b.CostLookups.Add(1)
	if hit {
		b.CostHits.Add(1)
	}
}

// RecordDegraded implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDegraded(string) {
	b.DegradedCount.Add(1)
}

// RecordPrune implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPrune() {
	b.PruneCount.Add(1)
}

// RecordRelaxation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRelaxation() {
	b.RelaxationCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		StepCount:            b.StepCount.Load(),
		LostSteps:            b.LostSteps.Load(),
		RelocalizedSteps:     b.RelocalizedSteps.Load(),
		RelocalizationCount:  b.RelocalizationCount.Load(),
		EmptyRelocalizations: b.EmptyRelocalizations.Load(),
		ExpansionCount:       b.ExpansionCount.Load(),
		SuccessorCount:       b.SuccessorCount.Load(),
		CostLookups:          b.CostLookups.Load(),
		CostHits:             b.CostHits.Load(),
		DegradedCount:        b.DegradedCount.Load(),
		PruneCount:           b.PruneCount.Load(),
		RelaxationCount:      b.RelaxationCount.Load(),
	}
	if s.StepCount > 0 {
		s.StepAvgNanos = b.StepTotalNanos.Load() / s.StepCount
	}
	if s.CostLookups > 0 {
		s.CostHitRate = float64(s.CostHits) / float64(s.CostLookups)
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	StepCount            int64
	StepAvgNanos         int64
	LostSteps            int64
	RelocalizedSteps     int64
	RelocalizationCount  int64
	EmptyRelocalizations int64
	ExpansionCount       int64
	SuccessorCount       int64
	CostLookups          int64
	CostHits             int64
	CostHitRate          float64
	DegradedCount        int64
	PruneCount           int64
	RelaxationCount      int64
}

// observer forwards component events to a MetricsCollector.
type observer struct {
	c MetricsCollector
}

var (
	_ cost.MetricsObserver      = observer{}
	_ successor.MetricsObserver = observer{}
	_ localizer.MetricsObserver = observer{}
)

func (o observer) OnCostLookup(hit bool)  { o.c.RecordCostLookup(hit) }
func (o observer) OnDegraded(kind string) { o.c.RecordDegraded(kind) }
func (o observer) OnExpansion(n int)      { o.c.RecordExpansion(n) }
func (o observer) OnRelocalization(n int) { o.c.RecordRelocalization(n) }
func (o observer) OnPrune()               { o.c.RecordPrune() }
func (o observer) OnRelaxation()          { o.c.RecordRelaxation() }
func (o observer) OnStep(relocalized, lost bool, d time.Duration) {
	o.c.RecordStep(relocalized, lost, d)
}
