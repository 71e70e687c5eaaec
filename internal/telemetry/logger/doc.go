// Package logger configures structured logging for statehttpd.
//
//   - logger.go: log/slog handler construction and runtime level control
//   - context.go: request-scoped loggers and request ids
//   - redact.go: credential and cookie redaction
//
// Components receive a *slog.Logger; nothing here is required to log, it
// only decides format, level and what must never reach the output.
package logger
