package lexgo

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with lexgo-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithOrth adds an orth id field to the logger.
func (l *Logger) WithOrth(orth uint64) *Logger {
	return &Logger{Logger: l.Logger.With("orth", orth)}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{Logger: l.Logger.With("dimension", dim)}
}

// LogVectorsLoad logs a bulk vector load.
func (l *Logger) LogVectorsLoad(count, dimension int, err error) {
	if err != nil {
		l.Error("vector load failed",
			"count", count,
			"dimension", dimension,
			"error", err,
		)
	} else {
		l.Info("vector load completed",
			"count", count,
			"dimension", dimension,
		)
	}
}

// LogSnapshot logs a model directory save or load.
func (l *Logger) LogSnapshot(dir string, records int, err error) {
	if err != nil {
		l.Error("snapshot failed",
			"dir", dir,
			"error", err,
		)
	} else {
		l.Info("snapshot completed",
			"dir", dir,
			"records", records,
		)
	}
}
