package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hupe1980/seqloc"
	"github.com/hupe1980/seqloc/config"
	"github.com/hupe1980/seqloc/result"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

var logger = seqloc.NewTextLogger(slog.LevelInfo)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Path to the YAML run configuration",
		Required: true,
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "seqloc",
		Usage: "Online sequence-based place recognition",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit logs as JSON",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "match",
				Usage:  "Localize the query sequence against the reference trajectory",
				Action: matchCommand,
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "Serve Prometheus metrics on this address (overrides metrics_addr)",
					},
					&cli.IntFlag{
						Name:  "query-size",
						Usage: "Process at most this many queries (overrides query_size)",
					},
					&cli.IntFlag{
						Name:  "parallelism",
						Usage: "Concurrent descriptor loads while training the relocalizer",
						Value: 8,
					},
				},
			},
			{
				Name:   "similarity",
				Usage:  "Compute the full query x reference similarity matrix",
				Action: similarityCommand,
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "output",
						Usage: "Blob name of the matrix (defaults to similarity_matrix)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of comparison workers (0 uses all CPUs)",
					},
				},
			},
			{
				Name:   "inspect",
				Usage:  "Summarize a stored matching result",
				Action: inspectCommand,
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "name",
						Usage: "Blob name of the result (defaults to matching_result)",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Print every match",
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	if c.Bool("json") {
		logger = seqloc.NewJSONLogger(level)
	} else {
		logger = seqloc.NewTextLogger(level)
	}
	slog.SetDefault(logger.Logger)
	return nil
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func matchCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if n := c.Int("query-size"); n > 0 {
		cfg.QuerySize = n
	}
	if addr := c.String("metrics-addr"); addr != "" {
		cfg.MetricsAddr = addr
	}

	opts := []seqloc.Option{
		seqloc.WithLogger(logger),
		seqloc.WithParallelism(c.Int("parallelism")),
	}
	if cfg.MetricsAddr != "" {
		collector, err := seqloc.NewPrometheusCollector(prometheus.DefaultRegisterer)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		opts = append(opts, seqloc.WithMetricsCollector(collector))

		srv := serveMetrics(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	p, err := seqloc.NewPipeline(cfg, opts...)
	if err != nil {
		return err
	}
	rep, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "run %s: %d queries, %d refs, %d/%d real matches, lost=%t, %s\n",
		rep.RunID, rep.Queries, rep.Refs, rep.Real, len(rep.Matches), rep.Lost, rep.Duration.Round(time.Millisecond))
	fmt.Fprintf(c.App.Writer, "search: %d nodes, %d expansions, %d relocalizations, %d pruned, %d relaxations\n",
		rep.Search.Nodes, rep.Search.Expansions, rep.Search.Relocalizations, rep.Search.Pruned, rep.Search.Relaxations)
	fmt.Fprintf(c.App.Writer, "costs: %d lookups, %d hits, %d comparisons\n",
		rep.Cost.Lookups, rep.Cost.Hits, rep.Cost.Comparisons)
	return nil
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

func similarityCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	name := c.String("output")
	if name == "" {
		name = cfg.SimilarityMatrix
	}
	if name == "" {
		return fmt.Errorf("%w: no output name, set --output or similarity_matrix", seqloc.ErrInvalidConfig)
	}

	p, err := seqloc.NewPipeline(cfg, seqloc.WithLogger(logger))
	if err != nil {
		return err
	}
	start := time.Now()
	sim, err := p.WriteSimilarity(ctx, name, c.Int("workers"))
	if err != nil {
		return err
	}

	rows, cols := sim.Dims()
	fmt.Fprintf(c.App.Writer, "wrote %dx%d similarity matrix to %s in %s\n", rows, cols, name, time.Since(start).Round(time.Millisecond))
	return nil
}

func inspectCommand(c *cli.Context) error {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	name := c.String("name")
	if name == "" {
		name = cfg.MatchingResult
	}

	store, err := seqloc.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	matches, err := result.ReadMatches(ctx, store, name)
	if err != nil {
		return err
	}

	w := c.App.Writer
	realCount := matches.RealCount()
	fmt.Fprintf(w, "%s: %d matches, %d real, %d hidden\n", name, len(matches), realCount, len(matches)-realCount)
	if len(matches) > 0 {
		first, last := matches[0], matches[len(matches)-1]
		fmt.Fprintf(w, "queries %d..%d, refs %d..%d\n", first.QueryID, last.QueryID, first.RefID, last.RefID)
	}
	if c.Bool("all") {
		for _, m := range matches {
			fmt.Fprintf(w, "%d\t%d\t%t\n", m.QueryID, m.RefID, m.Real())
		}
	}
	return nil
}
