package async

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/utils/logging"
)

// Dispatch runs fn in a new goroutine detached from the caller's lifetime.
// The request context is replaced with a background one carrying the same
// logger, so the work survives the trigger that scheduled it. Panics and
// errors are logged, never propagated.
func Dispatch(ctx context.Context, fn func(ctx context.Context) error) {
	bgCtx := logging.With(context.Background(), logging.From(ctx))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async task", "panic", r)
			}
		}()

		if err := fn(bgCtx); err != nil {
			logging.From(bgCtx).Error("async task failed", "error", goerr.Unwrap(err))
		}
	}()
}
