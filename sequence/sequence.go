package sequence

import (
	"golang.org/x/sys/cpu"
	"strconv"
	"sync/atomic"
)

// Sequence is a monotonic counter that is safe for concurrent use.
// It's padded on both sides so that two hot sequences never share a cache line.
type Sequence struct {
	_     cpu.CacheLinePad
	value atomic.Uint64
	_     cpu.CacheLinePad
}

// New creates a [Sequence] with the given initial value.
func New(initial uint64) *Sequence {
	s := new(Sequence)
	s.value.Store(initial)
	return s
}

// Get loads the current value.
func (s *Sequence) Get() uint64 {
	return s.value.Load()
}

// Set stores a new value and returns the previous one.
func (s *Sequence) Set(val uint64) uint64 {
	return s.value.Swap(val)
}

// CompareAndSwap sets the value to val only if the current value is expected.
func (s *Sequence) CompareAndSwap(expected, val uint64) bool {
	return s.value.CompareAndSwap(expected, val)
}

// Increment adds one to the [Sequence] and returns the new value.
func (s *Sequence) Increment() uint64 {
	return s.value.Add(1)
}

func (s *Sequence) String() string {
	return strconv.FormatUint(s.Get(), 10)
}
