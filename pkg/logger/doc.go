// Package logger provides structured logging for confkit.
//
// It wraps log/slog behind a small Logger interface that loaders, the
// resolver and the CLI share:
//
//   - logger.go: Logger interface, slog-backed implementation, levels
//   - context.go: carrying a Logger through a context.Context
//   - redact.go: masking of sensitive attribute values
//   - keylogger.go: per-event log levels for loader diagnostics
//
// The Logger interface is a superset of go-retryablehttp's LeveledLogger, so
// the same instance can be handed to HTTP clients built by the fetch loader.
package logger
