package rsfs

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with rsfs-specific context.
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
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithFile adds a file name field to the logger.
func (l *Logger) WithFile(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("file", name),
	}
}

// WithFD adds a descriptor field to the logger.
func (l *Logger) WithFD(fd int) *Logger {
	return &Logger{
		Logger: l.Logger.With("fd", fd),
	}
}

// LogCreate logs a create operation.
func (l *Logger) LogCreate(ctx context.Context, name string, ino int, err error) {
	if err != nil {
		l.WarnContext(ctx, "create failed",
			"file", name,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "create completed",
			"file", name,
			"inode", ino,
		)
	}
}

// LogOpen logs an open operation.
func (l *Logger) LogOpen(ctx context.Context, name string, mode Mode, fd int, err error) {
	if err != nil {
		l.WarnContext(ctx, "open failed",
			"file", name,
			"mode", mode.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "open completed",
			"file", name,
			"mode", mode.String(),
			"fd", fd,
		)
	}
}

// LogClose logs a close operation.
func (l *Logger) LogClose(ctx context.Context, fd int, err error) {
	if err != nil {
		l.WarnContext(ctx, "close failed",
			"fd", fd,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "close completed",
			"fd", fd,
		)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, name string, blocks int, err error) {
	if err != nil {
		l.WarnContext(ctx, "delete failed",
			"file", name,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"file", name,
			"blocks_freed", blocks,
		)
	}
}

// LogExhausted logs a transfer cut short by block or pointer exhaustion.
// Use WithFD to attach the descriptor.
func (l *Logger) LogExhausted(ctx context.Context, op string, requested, done int) {
	l.WarnContext(ctx, "transfer truncated",
		"op", op,
		"requested", requested,
		"done", done,
	)
}

// LogInvariant logs a violated internal invariant.
func (l *Logger) LogInvariant(ctx context.Context, err error) {
	l.ErrorContext(ctx, "invariant violated",
		"error", err,
	)
}
