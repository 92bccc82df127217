package ringbus

import (
	"errors"
	"github.com/saylorsolutions/ringbus/ring"
	"github.com/saylorsolutions/ringbus/sequence"
	"github.com/saylorsolutions/ringbus/syncx"
	"sync"
)

// AsyncPublisher publishes one event at a time for callers that must not block, such as a cooperative scheduler.
//
// A slot is claimed as soon as an event is accepted, but the event is only written on [AsyncPublisher.Flush].
// Until then the publisher isn't [AsyncPublisher.Ready] for another event.
type AsyncPublisher[T any] struct {
	bus     *Bus
	mux     sync.Mutex
	pending bool
	seq     uint64
	value   T
	closed  bool
}

func NewAsyncPublisher[T any](b *Bus) *AsyncPublisher[T] {
	return &AsyncPublisher[T]{bus: b}
}

// Ready reports whether [AsyncPublisher.Accept] is likely to take an event.
// Other publishers may claim the free capacity before Accept is called, so Accept can still return [ErrNotReady].
func (p *AsyncPublisher[T]) Ready() bool {
	return syncx.LockFuncT(&p.mux, func() bool {
		if p.closed || p.pending || p.bus.closed.Load() {
			return false
		}
		return p.bus.ring.Sequencer().RemainingCapacity() > 0
	})
}

// Accept claims a slot for value and holds it until [AsyncPublisher.Flush].
// Accept never waits: [ErrNotReady] is returned if an event is already pending or the ring is full, and [ErrClosed] if the publisher or its [Bus] is closed.
func (p *AsyncPublisher[T]) Accept(value T) error {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.closed || p.bus.closed.Load() {
		return ErrClosed
	}
	if p.pending {
		return ErrNotReady
	}
	seq, err := p.bus.ring.Sequencer().TryNextN(1)
	switch {
	case errors.Is(err, sequence.ErrInsufficientCapacity):
		return ErrNotReady
	case err != nil:
		return p.bus.claimErr(err)
	}
	p.seq = seq
	p.value = value
	p.pending = true
	return nil
}

// Flush writes the pending event, if any.
func (p *AsyncPublisher[T]) Flush() {
	syncx.LockFunc(&p.mux, p.flush)
}

func (p *AsyncPublisher[T]) flush() {
	if !p.pending {
		return
	}
	ring.Write(p.bus.ring.Envelope(p.seq), p.seq, p.value)
	p.bus.recordPublished(1)
	var zero T
	p.value = zero
	p.pending = false
}

// Close flushes a pending event so its claimed slot doesn't stall subscribers, then rejects further events.
func (p *AsyncPublisher[T]) Close() {
	syncx.LockFunc(&p.mux, func() {
		p.flush()
		p.closed = true
	})
}
