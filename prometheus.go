package seqloc

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exports localization metrics to Prometheus.
type PrometheusCollector struct {
	steps           *prometheus.CounterVec
	stepLatency     prometheus.Histogram
	relocalizations prometheus.Histogram
	successors      prometheus.Histogram
	costLookups     *prometheus.CounterVec
	degraded        *prometheus.CounterVec
	pruned          prometheus.Counter
	relaxations     prometheus.Counter
}

var _ MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates the collector and registers its metrics with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &PrometheusCollector{
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seqloc_steps_total",
			Help: "Processed queries by mode and lost state.",
		}, []string{"relocalized", "lost"}),
		stepLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "seqloc_step_duration_seconds",
			Help:    "Time to process one query.",
			Buckets: prometheus.DefBuckets,
		}),
		relocalizations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "seqloc_relocalization_candidates",
			Help:    "Candidates returned per relocalization.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}),
		successors: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "seqloc_expansion_successors",
			Help:    "Successors produced per expanded node.",
			Buckets: []float64{1, 2, 5, 10, 20, 50},
		}),
		costLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seqloc_cost_lookups_total",
			Help: "Cost lookups by memoization result.",
		}, []string{"result"}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seqloc_degraded_total",
			Help: "Degraded-data conditions by kind.",
		}, []string{"kind"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seqloc_pruned_total",
			Help: "Frontier nodes discarded as not worth expanding.",
		}),
		relaxations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seqloc_relaxations_total",
			Help: "Cheaper paths found to visited nodes.",
		}),
	}

	for _, c := range []prometheus.Collector{
		p.steps, p.stepLatency, p.relocalizations, p.successors,
		p.costLookups, p.degraded, p.pruned, p.relaxations,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// RecordStep implements MetricsCollector.
func (p *PrometheusCollector) RecordStep(relocalized, lost bool, duration time.Duration) {
	p.steps.WithLabelValues(strconv.FormatBool(relocalized), strconv.FormatBool(lost)).Inc()
	p.stepLatency.Observe(duration.Seconds())
}

// RecordRelocalization implements MetricsCollector.
func (p *PrometheusCollector) RecordRelocalization(candidates int) {
	p.relocalizations.Observe(float64(candidates))
}

// RecordExpansion implements MetricsCollector.
func (p *PrometheusCollector) RecordExpansion(successors int) {
	p.successors.Observe(float64(successors))
}

// RecordCostLookup implements MetricsCollector.
func (p *PrometheusCollector) RecordCostLookup(hit bool) {
	if hit {
		p.costLookups.WithLabelValues("hit").Inc()
		return
	}
	p.costLookups.WithLabelValues("miss").Inc()
}

// RecordDegraded implements MetricsCollector.
func (p *PrometheusCollector) RecordDegraded(kind string) {
	p.degraded.WithLabelValues(kind).Inc()
}

// RecordPrune implements MetricsCollector.
func (p *PrometheusCollector) RecordPrune() { p.pruned.Inc() }

// RecordRelaxation implements MetricsCollector.
func (p *PrometheusCollector) RecordRelaxation() { p.relaxations.Inc() }
