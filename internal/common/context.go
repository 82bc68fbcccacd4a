package common

import (
	"context"
	"time"
)

type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyRunID     contextKey = "run_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithRunID tags the context with the ledger run processing the current document.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// LogAttrs returns req_id and, when a ledger run is active, run_id as slog key/value pairs
// followed by extra.
func LogAttrs(ctx context.Context, extra ...any) []any {
	attrs := make([]any, 0, 4+len(extra))
	attrs = append(attrs, "req_id", RequestIDFromContext(ctx))
	if runID := RunIDFromContext(ctx); runID != "" {
		attrs = append(attrs, "run_id", runID)
	}
	return append(attrs, extra...)
}

// WithTimeout creates a context with the specified timeout; a zero timeout returns a plain cancel context.
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
