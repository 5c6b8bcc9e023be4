package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jeksecret/schedule-coordination-tool/internal/engine"
	"github.com/jeksecret/schedule-coordination-tool/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return "not_found"
	case errors.Is(err, engine.ErrSessionLocked):
		return "session_locked"
	case errors.Is(err, engine.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, engine.ErrConsensusNotReached):
		return "consensus_not_reached"
	case errors.Is(err, engine.ErrNotReady):
		return "not_ready"
	}

	var vErr *engine.ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
