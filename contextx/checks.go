// Package contextx provides small helpers for [context.Context].
package contextx

import "context"

// IsDone reports whether ctx is done without blocking.
// A nil context is never done.
func IsDone(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
