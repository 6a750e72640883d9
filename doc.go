// Package seqloc provides online sequence-based place recognition.
//
// A query sequence of place descriptors (images or LiDAR scans) is matched
// against a reference trajectory recorded earlier. Matching runs online: each
// new query extends a best-first search over a directed graph of
// (query, reference) hypotheses, so the current path is available after every
// step.
//
// # Quick Start
//
//	cfg, _ := config.Load("run.yaml")
//	p, _ := seqloc.NewPipeline(cfg)
//	rep, _ := p.Run(ctx)
//	fmt.Println(rep.Real, "of", rep.Queries, "queries matched")
//
// # Building Blocks
//
// Pipeline wires the packages below. They can be used directly when the
// sequences do not come from a blob store.
//
//   - cost: memoizing descriptor-backed and matrix-backed cost providers
//   - relocalize: fixed-window, hashing and ring-key candidate retrievers
//   - successor: successor expansion in tracking and lost mode
//   - localizer: the online search and path extraction
//   - result: match and expanded-patch artifacts
//
// # Observability
//
// Logging uses log/slog through Logger. Metrics go to a MetricsCollector;
// BasicMetricsCollector keeps in-memory counters and PrometheusCollector
// exports them to Prometheus.
package seqloc
