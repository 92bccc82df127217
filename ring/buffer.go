/*
Package ring provides the storage of a disruptor style event bus.

A [Buffer] is a fixed, power-of-two sized array of [Envelope] slots, plus the [sequence.Sequencer] that decides which publisher may write into which slot.
A sequence maps to slot sequence&(size-1), so slots are reused every size publishes.

Events are stored type-erased and tagged with their [typeid.ID].
Reading with [ReadAs] for a different type than was written yields nothing rather than an error, because a bus legitimately carries many event types.

Replaced events are recycled into a pool, but only once the [epoch.Collector] of the [Buffer] can prove that no outstanding [Read] refers to them.
*/
package ring

import (
	"errors"
	"fmt"
	"github.com/saylorsolutions/ringbus/assert"
	"github.com/saylorsolutions/ringbus/epoch"
	"github.com/saylorsolutions/ringbus/sequence"
	"github.com/saylorsolutions/ringbus/syncx"
)

var (
	ErrInvalidSize = errors.New("buffer size must be a power of two")
)

type bufferConf struct {
	limboSize int
}

// Option configures a [Buffer].
type Option func(conf *bufferConf) error

// LimboSize sets how many replaced events may wait on outstanding reads per epoch before further replacements are left to the garbage collector instead of being recycled.
func LimboSize(size int) Option {
	return func(conf *bufferConf) error {
		if size < 1 {
			return fmt.Errorf("invalid limbo size '%d'", size)
		}
		conf.limboSize = size
		return nil
	}
}

// Buffer is a ring of [Envelope] slots shared by all publishers and subscribers.
// After construction, it's only mutated through atomics.
type Buffer struct {
	size      uint64
	mask      uint64
	envelopes []Envelope
	sequencer *sequence.Sequencer
	collector *epoch.Collector
	pool      *syncx.Pool[*payload]
}

// New creates a [Buffer] with size slots.
// The size must be a power of two, [ErrInvalidSize] is returned otherwise.
func New(size uint64, opts ...Option) (*Buffer, error) {
	if size == 0 || size&(size-1) != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	conf := bufferConf{limboSize: epoch.DefaultLimboSize}
	for _, opt := range opts {
		if err := opt(&conf); err != nil {
			return nil, err
		}
	}
	b := &Buffer{
		size:      size,
		mask:      size - 1,
		envelopes: make([]Envelope, size),
		sequencer: sequence.NewSequencer(size),
		collector: epoch.NewCollector(conf.limboSize),
		pool:      newPayloadPool(),
	}
	for i := range b.envelopes {
		b.envelopes[i].init(b.collector, b.pool)
	}
	return b, nil
}

// Size returns the number of slots.
func (b *Buffer) Size() uint64 {
	return b.size
}

// Sequencer returns the [sequence.Sequencer] that coordinates claims on this [Buffer].
func (b *Buffer) Sequencer() *sequence.Sequencer {
	return b.sequencer
}

// Collector returns the reclamation state shared by every [Envelope] of the [Buffer].
func (b *Buffer) Collector() *epoch.Collector {
	return b.collector
}

// NextN claims n slots and returns the sequence of the last.
func (b *Buffer) NextN(n uint64) (uint64, error) {
	return b.sequencer.NextN(n)
}

// Envelope returns the slot that the given sequence maps to.
func (b *Buffer) Envelope(seq uint64) *Envelope {
	e := &b.envelopes[seq&b.mask]
	assert.True("envelope populated", e.collector != nil)
	return e
}

// Publish claims a slot and writes value into it, returning the sequence it was published with.
// The claim fails with [sequence.ErrClosed] once the buffer's [sequence.Sequencer] is closed.
func Publish[T any](b *Buffer, value T) (uint64, error) {
	seq, err := b.NextN(1)
	if err != nil {
		return 0, err
	}
	Write(b.Envelope(seq), seq, value)
	return seq, nil
}
