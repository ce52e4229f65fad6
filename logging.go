package cotask

import (
	"context"
	"log/slog"
)

type loggerContextKey struct{}

// ContextWithLogger returns a copy of ctx carrying logger, retrievable
// with LoggerFromContext — the same context-carried-logger shape the
// rest of this module's ambient stack uses for passing a *slog.Logger
// through call chains that don't otherwise have a Host handy.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// LoggerFromContext returns the logger stored in ctx by
// ContextWithLogger, or slog.Default() if none was stored.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}
