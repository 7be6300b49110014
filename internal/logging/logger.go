// Package logging defines the structured-logging interface shared by the
// intake server and its services, with a log/slog JSON implementation.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "file record created", "fileId", id, "bucket", bucket)
type Logger interface {
	// Debug logs verbose diagnostics, e.g. individual poll attempts.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value
	// pairs. Services use it to bind "module" once and per-file keys such as
	// "fileId" for the lifetime of a reconcile or quarantine run.
	With(args ...any) Logger
}
