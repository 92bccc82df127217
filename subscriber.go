package ringbus

import (
	"context"
	"fmt"
	"github.com/saylorsolutions/ringbus/contextx"
	"github.com/saylorsolutions/ringbus/ring"
	"github.com/saylorsolutions/ringbus/sequence"
	"github.com/saylorsolutions/ringbus/syncx"
	"github.com/saylorsolutions/ringbus/typeid"
	"reflect"
	"sync/atomic"
	"time"
)

// Subscriber receives every event of type T published to a [Bus] after it subscribed.
//
// The cursor of a Subscriber holds the last sequence it has moved past, and gates publishers so that the next slot it expects isn't overwritten.
// A Subscriber is meant to be used by one goroutine at a time, although [Subscriber.Close] may be called from anywhere.
type Subscriber[T any] struct {
	bus    *Bus
	cursor *sequence.Sequence
	parker *syncx.Parker
	policy LapPolicy
	missed atomic.Uint64
	closed atomic.Bool
}

// Subscribe registers a new [Subscriber] for events of type T.
// Only events published after this call will be received.
func Subscribe[T any](b *Bus, opts ...SubscribeOption) (*Subscriber[T], error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	conf := &subConf{lapPolicy: b.lapPolicy}
	for _, opt := range opts {
		opt(conf)
	}
	sub := &Subscriber[T]{
		bus:    b,
		cursor: sequence.New(b.Cursor()),
		parker: syncx.NewParker(),
		policy: conf.lapPolicy,
	}
	b.ring.Sequencer().Register(sub.cursor)
	// Claims granted before registration aren't gated by this cursor, so start after them.
	sub.cursor.Set(b.Cursor())
	b.track(sub.parker)
	b.log.Debug("Subscriber added", "type", typeid.Name(reflect.TypeFor[T]()), "cursor", sub.cursor.Get())
	return sub, nil
}

// Sequence returns the last sequence this [Subscriber] moved past.
func (s *Subscriber[T]) Sequence() uint64 {
	return s.cursor.Get()
}

// Missed returns the number of events lost to lapping.
func (s *Subscriber[T]) Missed() uint64 {
	return s.missed.Load()
}

// Recv blocks until the next event of type T is available, the context is done, or the [Subscriber] or its [Bus] is closed.
// Events of other types are skipped.
// The returned [ring.Read] should be released when the value is no longer needed.
func (s *Subscriber[T]) Recv(ctx context.Context) (*ring.Read[T], error) {
	for {
		read, err := s.poll()
		if err != nil || read != nil {
			return read, err
		}
		if contextx.IsDone(ctx) {
			return nil, ctx.Err()
		}
		if err := s.park(ctx); err != nil {
			return nil, err
		}
	}
}

// TryRecv returns the next event of type T if one is already available.
// A nil [ring.Read] and nil error means there's nothing to read yet.
func (s *Subscriber[T]) TryRecv() (*ring.Read[T], error) {
	return s.poll()
}

// RecvTimeout is like [Subscriber.Recv], but gives up after timeout with [context.DeadlineExceeded].
func (s *Subscriber[T]) RecvTimeout(timeout time.Duration) (*ring.Read[T], error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Recv(ctx)
}

// poll moves the cursor past everything already published that isn't a T.
// It returns nil, nil when it reaches a slot that hasn't been written yet.
func (s *Subscriber[T]) poll() (*ring.Read[T], error) {
	for {
		if s.closed.Load() || s.bus.closed.Load() {
			return nil, ErrClosed
		}
		expected := s.cursor.Get() + 1
		env := s.bus.ring.Envelope(expected)
		found := env.Sequence()
		switch {
		case found < expected:
			return nil, nil
		case found == expected:
			// The slot must be read before the cursor moves past it, otherwise it could be overwritten mid read.
			read, ok := ring.ReadAs[T](env)
			if ok && read.Sequence() != expected {
				found = read.Sequence()
				read.Release()
				if err := s.lapped(expected, found); err != nil {
					return nil, err
				}
				continue
			}
			s.cursor.Set(expected)
			if !ok {
				continue
			}
			return read, nil
		default:
			if err := s.lapped(expected, found); err != nil {
				return nil, err
			}
		}
	}
}

// lapped moves the cursor past an event that was overwritten before it could be read.
func (s *Subscriber[T]) lapped(expected, found uint64) error {
	s.cursor.Set(expected)
	s.missed.Add(1)
	s.bus.recordLapped(expected, found)
	if s.policy == LapError {
		return fmt.Errorf("%w: expected sequence %d, found %d", ErrLapped, expected, found)
	}
	return nil
}

// park waits for the next expected slot to be written.
func (s *Subscriber[T]) park(ctx context.Context) error {
	expected := s.cursor.Get() + 1
	env := s.bus.ring.Envelope(expected)
	s.parker.Reset()
	env.AddWaiter(s.parker)
	defer env.RemoveWaiter(s.parker)
	// Publishers store the sequence before checking for waiters, so checking again after registering can't miss a wakeup.
	if env.Sequence() >= expected || s.closed.Load() || s.bus.closed.Load() {
		return nil
	}
	return s.parker.Park(ctx)
}

// Close deregisters the [Subscriber] so it no longer gates publishers.
// Any call to Recv that's blocked will return [ErrClosed].
func (s *Subscriber[T]) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.bus.ring.Sequencer().Deregister(s.cursor)
	s.bus.untrack(s.parker)
	s.parker.Unpark()
	s.bus.log.Debug("Subscriber removed", "type", typeid.Name(reflect.TypeFor[T]()), "cursor", s.cursor.Get())
}
