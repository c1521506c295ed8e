// Package logging is the structured logger shared by the sync pipeline.
// Every call takes the request or run context so handlers can pick up
// request IDs and run IDs attached upstream.
package logging

import "context"

// Logger accepts alternating key and value arguments after the message:
//
//	logger.Warn(ctx, "backup upsert failed", "id", id, "attempt", n)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With binds args to every record of the returned logger.
	With(args ...any) Logger
}
