package logging

import (
	"context"
	"time"
)

// DetachContext returns a context that is not cancelled with its parent
// but keeps the parent's values.
func DetachContext(parent context.Context) context.Context {
	return context.WithoutCancel(parent)
}

// DetachContextWithTimeout detaches from the parent and applies its own
// deadline. Background discovery runs use it so a finished HTTP request does
// not cancel the job it started.
//
//	jobCtx, cancel := logging.DetachContextWithTimeout(ctx, 30*time.Minute)
//	defer cancel()
func DetachContextWithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), timeout)
}
