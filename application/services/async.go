package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// sideEffectTimeout bounds how long a detached side effect may run before
// its context is cancelled.
const sideEffectTimeout = 10 * time.Second

// dispatch runs fn on its own goroutine with a fresh context so a slow or
// failing collaborator (event bus, memory service) can never block or fail
// the request that triggered it. Failures are logged and dropped.
func dispatch(logger *zap.Logger, operation string, fn func(ctx context.Context) error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("side effect panicked",
					zap.String("operation", operation),
					zap.Any("panic", r),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			logger.Warn("side effect failed",
				zap.String("operation", operation),
				zap.Error(err),
			)
		}
	}()
}
