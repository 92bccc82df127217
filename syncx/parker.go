package syncx

import "context"

// Parker is a wake primitive for a single goroutine.
// An [Parker.Unpark] that happens before [Parker.Park] is not lost, the next Park returns immediately.
// Multiple Unpark calls before a Park collapse into one wake up.
type Parker struct {
	token chan struct{}
}

func NewParker() *Parker {
	return &Parker{token: make(chan struct{}, 1)}
}

// Unpark wakes the parked goroutine, or makes the next [Parker.Park] return immediately.
// It never blocks and is safe to call from any goroutine.
func (p *Parker) Unpark() {
	select {
	case p.token <- struct{}{}:
	default:
	}
}

// Park blocks until [Parker.Unpark] is called or the context is done.
// The context error is returned if the context finished first.
func (p *Parker) Park(ctx context.Context) error {
	select {
	case <-p.token:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset discards a pending wake up, if any.
func (p *Parker) Reset() {
	select {
	case <-p.token:
	default:
	}
}
