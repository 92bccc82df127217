package ring

import (
	"github.com/saylorsolutions/ringbus/epoch"
	"github.com/saylorsolutions/ringbus/structures/set"
	"github.com/saylorsolutions/ringbus/syncx"
	"github.com/saylorsolutions/ringbus/typeid"
	"sync"
	"sync/atomic"
)

// payload is the type-erased content of an [Envelope].
// It's never mutated while reachable, only replaced and recycled.
// The sequence it was written with travels with it, so a reader can't pair a value with the wrong sequence.
type payload struct {
	seq   uint64
	tag   typeid.ID
	value any
}

func newPayloadPool() *syncx.Pool[*payload] {
	return syncx.NewPool(func() *payload {
		return new(payload)
	}, func(p *payload) {
		p.seq = 0
		p.tag = 0
		p.value = nil
	})
}

// Envelope is a single slot of a [Buffer].
// It holds the sequence that was last published into it, and the event published with that sequence.
type Envelope struct {
	sequence  atomic.Uint64
	event     atomic.Pointer[payload]
	collector *epoch.Collector
	pool      *syncx.Pool[*payload]

	waiting atomic.Int64
	mux     sync.Mutex
	waiters set.Set[*syncx.Parker]
}

// NewEnvelope creates an empty, standalone [Envelope] with its own reclamation state.
// Envelopes created by a [Buffer] share the state of the [Buffer] instead.
func NewEnvelope() *Envelope {
	e := new(Envelope)
	e.init(epoch.NewCollector(), newPayloadPool())
	return e
}

func (e *Envelope) init(collector *epoch.Collector, pool *syncx.Pool[*payload]) {
	e.collector = collector
	e.pool = pool
}

// Sequence returns the sequence last published into this [Envelope].
// Zero means nothing has been published yet.
func (e *Envelope) Sequence() uint64 {
	return e.sequence.Load()
}

// Write publishes value as a T with the given sequence.
func Write[T any](e *Envelope, seq uint64, value T) {
	e.overwrite(seq, typeid.Of[T](), value)
}

// Overwrite publishes value tagged with its dynamic type.
// Prefer [Write] when the static type is known, since readers match against the static type they ask for.
func (e *Envelope) Overwrite(seq uint64, value any) {
	e.overwrite(seq, typeid.OfValue(value), value)
}

func (e *Envelope) overwrite(seq uint64, tag typeid.ID, value any) {
	next := e.pool.Get()
	next.seq = seq
	next.tag = tag
	next.value = value

	var prev *payload
	for {
		prev = e.event.Load()
		if e.event.CompareAndSwap(prev, next) {
			break
		}
	}
	// The payload must be visible before the sequence that announces it.
	e.storeSequence(seq)
	if prev != nil {
		e.collector.Retire(func() {
			e.pool.Put(prev)
		})
	}
	e.wake()
}

// storeSequence only ever moves the sequence forward.
func (e *Envelope) storeSequence(seq uint64) {
	for {
		current := e.sequence.Load()
		if seq <= current {
			return
		}
		if e.sequence.CompareAndSwap(current, seq) {
			return
		}
	}
}

// AddWaiter registers a [syncx.Parker] to be unparked by the next write to this [Envelope].
// Callers must re-check [Envelope.Sequence] after registering and before parking, since a write may have landed in between.
func (e *Envelope) AddWaiter(p *syncx.Parker) {
	syncx.LockFunc(&e.mux, func() {
		if e.waiters.Has(p) {
			return
		}
		e.waiters = e.waiters.Add(p)
		e.waiting.Add(1)
	})
}

// RemoveWaiter unregisters a [syncx.Parker] that no longer needs to be woken.
func (e *Envelope) RemoveWaiter(p *syncx.Parker) {
	syncx.LockFunc(&e.mux, func() {
		if !e.waiters.Has(p) {
			return
		}
		e.waiters.Remove(p)
		e.waiting.Add(-1)
	})
}

// Waiters returns the number of registered waiters.
func (e *Envelope) Waiters() int {
	return int(e.waiting.Load())
}

func (e *Envelope) wake() {
	if e.waiting.Load() == 0 {
		return
	}
	parkers := syncx.LockFuncT(&e.mux, func() []*syncx.Parker {
		drained := e.waiters.Drain()
		e.waiting.Add(-int64(len(drained)))
		return drained
	})
	for _, p := range parkers {
		p.Unpark()
	}
}
