package adapter

import (
	"context"
	"errors"
	"net"
)

// IsTransient reports whether an adapter error is safe to retry. The
// classifier uses this to retry a tie-breaker call exactly once before
// falling back to the heuristic result.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
