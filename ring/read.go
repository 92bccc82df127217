package ring

import (
	"github.com/saylorsolutions/ringbus/assert"
	"github.com/saylorsolutions/ringbus/epoch"
	"github.com/saylorsolutions/ringbus/typeid"
)

// Read is a read-only view of an event in an [Envelope].
// The event can't be recycled while the Read is held, even if the [Envelope] is overwritten in the meantime.
// Call [Read.Release] when done with it, after which the Read must not be used.
//
// A Read is not safe for concurrent use.
type Read[T any] struct {
	guard *epoch.Guard
	event *payload
	seq   uint64
}

// ReadAs returns a [Read] of the current event in the [Envelope] if it was written as a T.
// False is returned if the [Envelope] is empty or holds a different type.
func ReadAs[T any](e *Envelope) (*Read[T], bool) {
	guard := e.collector.Pin()
	event := e.event.Load()
	if event == nil || event.tag != typeid.Of[T]() {
		guard.Release()
		return nil, false
	}
	// A nil value is valid for interface and pointer types, the tag already matched.
	if _, ok := event.value.(T); !ok && event.value != nil {
		guard.Release()
		return nil, false
	}
	return &Read[T]{guard: guard, event: event, seq: event.seq}, true
}

// Value returns the event.
func (r *Read[T]) Value() T {
	assert.True("read used after release", r.event != nil)
	val, _ := r.event.value.(T)
	return val
}

// Sequence returns the sequence the event was written with.
// This may be newer than the sequence a caller checked on the [Envelope] before reading, if the slot was overwritten in between.
func (r *Read[T]) Sequence() uint64 {
	return r.seq
}

// Release allows the event to be recycled.
// Calling Release more than once does nothing.
func (r *Read[T]) Release() {
	if r == nil || r.event == nil {
		return
	}
	r.event = nil
	r.guard.Release()
}
