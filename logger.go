package seqloc

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger with seqloc-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// ParseLevel maps debug, info, warn and error to a slog level.
// Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRunID adds a run_id field to the logger.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", id),
	}
}

// WithQuery adds a query_id field to the logger.
func (l *Logger) WithQuery(queryID int) *Logger {
	return &Logger{
		Logger: l.Logger.With("query_id", queryID),
	}
}

// WithComponent adds a component field to the logger.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", name),
	}
}

// LogStep logs the outcome of processing queries up to queryID.
func (l *Logger) LogStep(ctx context.Context, queryID, refID int, lost bool, duration time.Duration) {
	l.DebugContext(ctx, "query processed",
		"query_id", queryID,
		"ref_id", refID,
		"lost", lost,
		"duration", duration,
	)
}

// LogRelocalization logs a relocalization attempt.
func (l *Logger) LogRelocalization(ctx context.Context, queryID, candidates int) {
	if candidates == 0 {
		l.WarnContext(ctx, "relocalization found no candidates",
			"query_id", queryID,
		)
		return
	}
	l.InfoContext(ctx, "relocalized",
		"query_id", queryID,
		"candidates", candidates,
	)
}

// LogLost logs a transition into the lost state.
func (l *Logger) LogLost(ctx context.Context, queryID int, window int, ratio float64) {
	l.InfoContext(ctx, "localizer lost",
		"query_id", queryID,
		"window", window,
		"ratio", ratio,
	)
}

// LogTrain logs a retriever training step.
func (l *Logger) LogTrain(ctx context.Context, kind string, refs int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "retriever training failed",
			"kind", kind,
			"refs", refs,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "retriever trained",
		"kind", kind,
		"refs", refs,
		"duration", duration,
	)
}

// LogArtifact logs reading or writing a stored artifact.
func (l *Logger) LogArtifact(ctx context.Context, op, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "artifact "+op+" failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "artifact "+op,
		"name", name,
	)
}
