// Package logging defines the structured-logging interface used by eventhub
// and the adapters behind it (log/slog and rs/zerolog).
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// Variadic args are key/value pairs:
//
//	log.Info(ctx, "user logged in", "user_id", id)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
