package sequence

import (
	"errors"
	"fmt"
	"github.com/valyala/fastrand"
	"runtime"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidClaim         = errors.New("invalid claim size")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrClosed               = errors.New("sequencer closed")
)

const (
	goschedEvery = 64   // yield to the scheduler this often while waiting on a slow consumer
	sleepAfter   = 4096 // start sleeping briefly once spinning has clearly failed
	maxSleepNano = 50_000
)

// Sequencer hands out slots of a ring buffer to publishers.
// A claim never gets more than bufferSize slots ahead of the slowest registered gating [Sequence].
type Sequencer struct {
	bufferSize  uint64
	cursor      *Sequence
	gatingCache *Sequence
	gating      *Group
	closed      atomic.Bool
}

// NewSequencer creates a [Sequencer] for a buffer with the given size.
func NewSequencer(bufferSize uint64) *Sequencer {
	return &Sequencer{
		bufferSize:  bufferSize,
		cursor:      New(0),
		gatingCache: New(0),
		gating:      NewGroup(),
	}
}

// BufferSize returns the size of the buffer this [Sequencer] was created for.
func (s *Sequencer) BufferSize() uint64 {
	return s.bufferSize
}

// Cursor returns the highest sequence claimed so far.
func (s *Sequencer) Cursor() uint64 {
	return s.cursor.Get()
}

// Register adds consumer sequences that should gate publishers.
// A consumer only protects slots claimed after its registration.
func (s *Sequencer) Register(seqs ...*Sequence) {
	s.gating.Add(seqs...)
}

// Deregister removes a consumer sequence so it stops gating publishers.
func (s *Sequencer) Deregister(seq *Sequence) bool {
	return s.gating.Remove(seq)
}

// GatingCount returns the number of registered gating sequences.
func (s *Sequencer) GatingCount() int {
	return s.gating.Len()
}

// Minimum returns the lowest registered gating sequence, or the cursor if none are registered.
func (s *Sequencer) Minimum() uint64 {
	return s.gating.Minimum(s.cursor.Get())
}

// RemainingCapacity reports how many slots could be claimed right now without waiting on a consumer.
func (s *Sequencer) RemainingCapacity() uint64 {
	produced := s.cursor.Get()
	consumed := s.gating.Minimum(produced)
	used := produced - consumed
	if used >= s.bufferSize {
		return 0
	}
	return s.bufferSize - used
}

// Close fails every claim from now on with [ErrClosed], including claims already waiting on a consumer.
func (s *Sequencer) Close() {
	s.closed.Store(true)
}

// IsClosed reports whether [Sequencer.Close] has been called.
func (s *Sequencer) IsClosed() bool {
	return s.closed.Load()
}

// Next claims a single slot, waiting for consumers as needed.
// Next panics if the Sequencer is closed, use [Sequencer.NextN] where that can happen.
func (s *Sequencer) Next() uint64 {
	next, err := s.NextN(1)
	if err != nil {
		panic(fmt.Sprintf("single slot claim failed: %v", err))
	}
	return next
}

// NextN claims the next n slots and returns the sequence of the last one.
// The claimed range is (returned - n, returned].
// This will spin and yield until the slowest consumer has moved far enough; it never skips ahead of a consumer.
func (s *Sequencer) NextN(n uint64) (uint64, error) {
	if err := s.validate(n); err != nil {
		return 0, err
	}
	var b backoff
	for {
		next, ok, retry := s.tryClaim(n)
		if ok {
			return next, nil
		}
		if !retry {
			if s.closed.Load() {
				return 0, ErrClosed
			}
			b.wait()
		}
	}
}

// TryNextN makes a claim for n slots only if it can be granted without waiting on a consumer.
// [ErrInsufficientCapacity] is returned if the slowest consumer is too far behind.
func (s *Sequencer) TryNextN(n uint64) (uint64, error) {
	if err := s.validate(n); err != nil {
		return 0, err
	}
	for {
		next, ok, retry := s.tryClaim(n)
		if ok {
			return next, nil
		}
		if !retry {
			return 0, fmt.Errorf("%w: %d slots requested", ErrInsufficientCapacity, n)
		}
	}
}

func (s *Sequencer) validate(n uint64) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if n < 1 || n > s.bufferSize {
		return fmt.Errorf("%w: n must be in [1, %d], got %d", ErrInvalidClaim, s.bufferSize, n)
	}
	return nil
}

// tryClaim makes one pass of the claim protocol.
// Returns ok if the claim was made.
// Otherwise, retry reports whether another pass may succeed immediately (contention or refreshed cache), rather than needing to wait on consumers.
func (s *Sequencer) tryClaim(n uint64) (next uint64, ok bool, retry bool) {
	current := s.cursor.Get()
	next = current + n
	wrapPoint := int64(next) - int64(s.bufferSize)
	cached := int64(s.gatingCache.Get())

	if wrapPoint > cached || cached > int64(current) {
		gating := s.gating.Minimum(current)
		if wrapPoint > int64(gating) {
			return 0, false, false
		}
		s.gatingCache.Set(gating)
		return 0, false, true
	}
	if s.cursor.CompareAndSwap(current, next) {
		return next, true, false
	}
	return 0, false, true
}

type backoff struct {
	spins uint32
}

func (b *backoff) wait() {
	b.spins++
	switch {
	case b.spins >= sleepAfter:
		time.Sleep(time.Duration(1 + fastrand.Uint32n(maxSleepNano)))
	case b.spins%goschedEvery == 0:
		runtime.Gosched()
	}
}
