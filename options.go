package seqloc

import (
	"github.com/hupe1980/seqloc/blobstore"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	store            blobstore.BlobStore
	parallelism      int
}

// Option configures a Pipeline.
type Option func(*options)

// WithLogger sets the logger. A nil logger keeps the default text logger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsCollector sets the metrics collector.
//
// Example:
//
//	collector := &seqloc.BasicMetricsCollector{}
//	p, _ := seqloc.NewPipeline(cfg, seqloc.WithMetricsCollector(collector))
func WithMetricsCollector(c MetricsCollector) Option {
	return func(o *options) {
		if c != nil {
			o.metricsCollector = c
		}
	}
}

// WithStore overrides the blob store selected by the storage configuration.
func WithStore(s blobstore.BlobStore) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithParallelism bounds concurrent descriptor loads while training a retriever.
// Values <= 0 leave loads unbounded.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}
