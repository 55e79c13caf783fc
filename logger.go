package ledgercol

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with column-specific helpers.
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
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithColumn tags every record with the column name.
func (l *Logger) WithColumn(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("column", name),
	}
}

// LogImport logs a column import.
func (l *Logger) LogImport(ctx context.Context, version Version, length int, mode Mode, err error) {
	if err != nil {
		l.ErrorContext(ctx, "import failed",
			"version", uint64(version),
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "import completed",
		"version", uint64(version),
		"length", length,
		"mode", mode.String(),
	)
}

// LogFlush logs a flush of the write buffer.
func (l *Logger) LogFlush(ctx context.Context, records, bytes int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed",
			"records", records,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "flush completed",
		"records", records,
		"bytes", bytes,
		"duration", duration,
	)
}

// LogTruncate logs a truncation.
func (l *Logger) LogTruncate(ctx context.Context, from, to int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "truncate failed",
			"from", from,
			"to", to,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "truncated",
		"from", from,
		"to", to,
	)
}

// LogReset logs a destructive reset. Always at warn level.
func (l *Logger) LogReset(ctx context.Context, reason string, dropped int) {
	l.WarnContext(ctx, "column reset",
		"reason", reason,
		"dropped", dropped,
	)
}

// LogTornTail logs the recovery of a partially written trailing record.
func (l *Logger) LogTornTail(ctx context.Context, size, kept int64) {
	l.WarnContext(ctx, "truncated torn trailing record",
		"size", size,
		"kept", kept,
	)
}
