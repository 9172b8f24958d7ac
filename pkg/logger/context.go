package logger

import "context"

type contextKey string

const loggerKey contextKey = "confkit.logger"

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored in ctx, or fallback when none is
// set. A nil fallback means the default logger.
func FromContext(ctx context.Context, fallback Logger) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok && l != nil {
		return l
	}
	if fallback == nil {
		return Default()
	}
	return fallback
}
