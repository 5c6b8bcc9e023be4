package http

import (
	"context"
	"log/slog"

	"github.com/jeksecret/schedule-coordination-tool/internal/logging"
)

type contextKey string

const (
	sessionIDContextKey   contextKey = "session_id"
	slotIDContextKey      contextKey = "slot_id"
	evaluatorIDContextKey contextKey = "evaluator_id"
)

// ContextWithSessionID injects the session identifier resolved from the request path.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}

// SessionIDFromContext extracts a session identifier previously associated with the context.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDContextKey).(string)
	return id, ok
}

// ContextWithSlotID injects the candidate slot identifier resolved from the request path.
func ContextWithSlotID(ctx context.Context, slotID string) context.Context {
	return context.WithValue(ctx, slotIDContextKey, slotID)
}

// SlotIDFromContext extracts a candidate slot identifier previously associated with the context.
func SlotIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(slotIDContextKey).(string)
	return id, ok
}

// ContextWithEvaluatorID injects the evaluator identifier resolved from the request path.
func ContextWithEvaluatorID(ctx context.Context, evaluatorID string) context.Context {
	return context.WithValue(ctx, evaluatorIDContextKey, evaluatorID)
}

// EvaluatorIDFromContext extracts an evaluator identifier previously associated with the context.
func EvaluatorIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(evaluatorIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts a request scoped logger from the context.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
