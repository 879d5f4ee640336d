// Package logger provides structured logging for cropeye-monitor.
//
// It wraps the standard library log/slog:
//
//   - logger.go: logger construction and dynamic level control
//   - context.go: context-aware logging with request IDs
//   - redact.go: sensitive data redaction
//
// The level is held in a shared slog.LevelVar so a configuration reload can
// change verbosity without rebuilding loggers.
package logger
