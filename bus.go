package ringbus

import (
	"errors"
	"fmt"
	"github.com/saylorsolutions/ringbus/ring"
	"github.com/saylorsolutions/ringbus/sequence"
	"github.com/saylorsolutions/ringbus/slogx"
	"github.com/saylorsolutions/ringbus/structures/set"
	"github.com/saylorsolutions/ringbus/syncx"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	ErrClosed   = errors.New("bus closed")
	ErrNotReady = errors.New("publisher not ready")
	ErrLapped   = errors.New("subscriber lapped")
)

// Bus carries events of any type through a shared ring buffer.
// A Bus is safe for concurrent use by any number of publishers and subscribers.
type Bus struct {
	ring      *ring.Buffer
	log       *slog.Logger
	metrics   *busMetrics
	lapPolicy LapPolicy
	closed    atomic.Bool
	published atomic.Uint64
	lapped    atomic.Uint64

	mux     sync.Mutex
	parkers set.Set[*syncx.Parker]
}

// New creates a [Bus] configured with the given options.
func New(opts ...ConfigFunc) (*Bus, error) {
	conf := &busConf{
		capacity: DefaultCapacity,
		logger:   slogx.Discard(),
	}
	for _, opt := range opts {
		if err := opt(conf); err != nil {
			return nil, err
		}
	}
	var ringOpts []ring.Option
	if conf.limboSize > 0 {
		ringOpts = append(ringOpts, ring.LimboSize(conf.limboSize))
	}
	buf, err := ring.New(conf.capacity, ringOpts...)
	if err != nil {
		return nil, err
	}
	b := &Bus{
		ring:      buf,
		log:       conf.logger,
		lapPolicy: conf.lapPolicy,
		parkers:   set.New[*syncx.Parker](),
	}
	if conf.registerer != nil {
		m, err := newBusMetrics(conf.registerer, b)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		b.metrics = m
	}
	b.log.Debug("Bus created", "capacity", conf.capacity, "lap_policy", conf.lapPolicy.String())
	return b, nil
}

// Capacity returns the number of slots in the ring.
func (b *Bus) Capacity() uint64 {
	return b.ring.Size()
}

// Cursor returns the highest sequence claimed by a publisher so far.
func (b *Bus) Cursor() uint64 {
	return b.ring.Sequencer().Cursor()
}

// Logger returns the [slog.Logger] used by the [Bus].
func (b *Bus) Logger() *slog.Logger {
	return b.log
}

// Stats is a point in time summary of a [Bus].
type Stats struct {
	Published   uint64
	Subscribers int
	Lapped      uint64
	Cursor      uint64
}

func (b *Bus) Stats() Stats {
	return Stats{
		Published:   b.published.Load(),
		Subscribers: b.ring.Sequencer().GatingCount(),
		Lapped:      b.lapped.Load(),
		Cursor:      b.Cursor(),
	}
}

// IsClosed reports whether [Bus.Close] has been called.
func (b *Bus) IsClosed() bool {
	return b.closed.Load()
}

// Close stops the [Bus]. Subscribers waiting in [Subscriber.Recv] are woken and get [ErrClosed], and further publishing fails.
// Calling Close more than once has no further effect.
func (b *Bus) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.ring.Sequencer().Close()
	syncx.LockFunc(&b.mux, func() {
		for _, p := range b.parkers.Slice() {
			p.Unpark()
		}
	})
	if b.metrics != nil {
		b.metrics.unregister()
	}
	b.log.Debug("Bus closed", "published", b.published.Load())
}

func (b *Bus) track(p *syncx.Parker) {
	syncx.LockFunc(&b.mux, func() {
		b.parkers.Add(p)
	})
}

func (b *Bus) untrack(p *syncx.Parker) {
	syncx.LockFunc(&b.mux, func() {
		b.parkers.Remove(p)
	})
}

// claimErr reports a claim cut short by a closed sequencer as [ErrClosed].
func (b *Bus) claimErr(err error) error {
	if errors.Is(err, sequence.ErrClosed) {
		return ErrClosed
	}
	return err
}

func (b *Bus) recordPublished(n uint64) {
	b.published.Add(n)
	if b.metrics != nil {
		b.metrics.published.Add(float64(n))
	}
}

func (b *Bus) recordLapped(expected, found uint64) {
	b.lapped.Add(1)
	if b.metrics != nil {
		b.metrics.lapped.Inc()
	}
	b.log.Warn("Subscriber lapped, event lost", "expected", expected, "found", found)
}

// Publish claims the next slot of the [Bus] and writes value to it, returning the sequence the event was published at.
// Publish waits while the ring is full, until the slowest subscriber moves on or the [Bus] is closed.
// A Publish still waiting when the Bus is closed returns [ErrClosed].
func Publish[T any](b *Bus, value T) (uint64, error) {
	if b.closed.Load() {
		return 0, ErrClosed
	}
	seq, err := ring.Publish(b.ring, value)
	if err != nil {
		return 0, b.claimErr(err)
	}
	b.recordPublished(1)
	return seq, nil
}

// PublishFunc is like [Publish], but calls claimed with the sequence after the slot is claimed and before value is written.
// No subscriber can receive the event before claimed returns.
func PublishFunc[T any](b *Bus, value T, claimed func(seq uint64)) (uint64, error) {
	if b.closed.Load() {
		return 0, ErrClosed
	}
	seq, err := b.ring.NextN(1)
	if err != nil {
		return 0, b.claimErr(err)
	}
	claimed(seq)
	ring.Write(b.ring.Envelope(seq), seq, value)
	b.recordPublished(1)
	return seq, nil
}

// PublishBatch claims one contiguous range of slots for all values and writes them in order.
// The returned sequence is that of the last value.
func PublishBatch[T any](b *Bus, values ...T) (uint64, error) {
	if b.closed.Load() {
		return 0, ErrClosed
	}
	last, err := b.ring.NextN(uint64(len(values)))
	if err != nil {
		return 0, b.claimErr(err)
	}
	first := last - uint64(len(values)) + 1
	for i, val := range values {
		seq := first + uint64(i)
		ring.Write(b.ring.Envelope(seq), seq, val)
	}
	b.recordPublished(uint64(len(values)))
	return last, nil
}
