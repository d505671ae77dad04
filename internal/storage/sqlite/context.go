package sqlite

import (
	"context"
	"time"
)

// contextWithTimeout derives a bounded context for a graph operation. A
// zero timeout means no additional deadline is imposed beyond the caller's.
func contextWithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
