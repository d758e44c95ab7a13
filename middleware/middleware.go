// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/quickly-poll/models"
)

type opIDKey struct{}

// WithOpID returns a context carrying an operation id
func WithOpID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, opIDKey{}, id)
}

// OpID returns the operation id stored in ctx, or ""
func OpID(ctx context.Context) string {
	id, _ := ctx.Value(opIDKey{}).(string)
	return id
}

// WithLogging runs fn as the named operation and logs its start and completion.
//
// A fresh operation id is attached to the context unless one is already
// present. Rule violations are logged at warn level, storage failures at
// error level.
func WithLogging[T any](ctx context.Context, logger *slog.Logger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = slog.Default()
	}

	id := OpID(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = WithOpID(ctx, id)
	}

	start := time.Now()
	logger.Debug("operation started", "op", op, "op_id", id)

	result, err := fn(ctx)

	duration := time.Since(start)
	switch {
	case err == nil:
		logger.Info("operation completed",
			"op", op,
			"op_id", id,
			"duration_ms", duration.Milliseconds(),
		)
	case models.IsDomainError(err):
		logger.Warn("operation rejected",
			"op", op,
			"op_id", id,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
	default:
		logger.Error("operation failed",
			"op", op,
			"op_id", id,
			"duration_ms", duration.Milliseconds(),
			"storage", errors.Is(err, models.ErrStorage),
			"error", err,
		)
	}

	return result, err
}
