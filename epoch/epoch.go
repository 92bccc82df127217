/*
Package epoch provides epoch-based deferred reclamation.

Readers [Collector.Pin] before dereferencing a shared value and release the [Guard] when they're done with it.
Writers that unlink a shared value hand a reclaim function to [Collector.Retire], which only runs once no reader that could have observed the value is still pinned.

The global epoch only advances from e to e+1 when no reader is pinned in e-1.
Anything retired in epoch e is therefore unreachable by readers once the epoch reaches e+2, and its reclaim function runs on that advance.

Retired values are never freed by this package; the reclaim function decides what happens to them (typically returning them to a pool).
Go's garbage collector keeps a value alive while anything references it, so a reclaim function that is never run is a lost recycling opportunity, not a memory safety problem.
This is what allows bounded limbo lists: once a bucket is full, further retirements are dropped.
*/
package epoch

import (
	"github.com/saylorsolutions/ringbus/syncx"
	"sync"
	"sync/atomic"
)

const (
	buckets = 3
	// DefaultLimboSize is the default maximum number of pending reclaim functions per epoch.
	DefaultLimboSize = 1024
)

// Collector tracks pinned readers and retired values.
// The zero value is not usable, use [NewCollector].
type Collector struct {
	epoch     atomic.Uint64
	active    [buckets]atomic.Int64
	limboSize int

	mux       sync.Mutex
	limbo     [buckets][]func()
	dropped   atomic.Uint64
	reclaimed atomic.Uint64
}

// NewCollector creates a [Collector].
// The limboSize bounds the number of pending reclaim functions per epoch, and defaults to [DefaultLimboSize] if < 1.
func NewCollector(limboSize ...int) *Collector {
	size := DefaultLimboSize
	if len(limboSize) > 0 && limboSize[0] > 0 {
		size = limboSize[0]
	}
	return &Collector{limboSize: size}
}

// Guard marks a reader as pinned in an epoch.
// It must be released exactly once, extra calls to [Guard.Release] do nothing.
type Guard struct {
	collector *Collector
	epoch     uint64
	released  atomic.Bool
}

// Pin registers the caller as an active reader in the current epoch.
// Values loaded after Pin returns will not be reclaimed until the [Guard] is released.
func (c *Collector) Pin() *Guard {
	for {
		e := c.epoch.Load()
		c.active[e%buckets].Add(1)
		if c.epoch.Load() == e {
			return &Guard{collector: c, epoch: e}
		}
		// The epoch moved between loading and announcing, so the announcement may have been missed.
		c.active[e%buckets].Add(-1)
	}
}

// Epoch returns the epoch this [Guard] was pinned in.
func (g *Guard) Epoch() uint64 {
	return g.epoch
}

// Release unpins the reader.
func (g *Guard) Release() {
	if g == nil || !g.released.CompareAndSwap(false, true) {
		return
	}
	g.collector.active[g.epoch%buckets].Add(-1)
}

// Retire defers reclaim until no reader pinned at or before the current epoch remains.
// The caller must have already made the retired value unreachable for new readers.
func (c *Collector) Retire(reclaim func()) {
	if reclaim == nil {
		return
	}
	var ready []func()
	syncx.LockFunc(&c.mux, func() {
		e := c.epoch.Load()
		bucket := e % buckets
		if len(c.limbo[bucket]) >= c.limboSize {
			ready = c.tryAdvance()
			e = c.epoch.Load()
			bucket = e % buckets
		}
		if len(c.limbo[bucket]) >= c.limboSize {
			c.dropped.Add(1)
			return
		}
		c.limbo[bucket] = append(c.limbo[bucket], reclaim)
		if len(c.limbo[bucket])%32 == 0 {
			ready = append(ready, c.tryAdvance()...)
		}
	})
	c.run(ready)
}

// TryAdvance attempts to move the epoch forward, running any reclaim functions that became safe.
// Returns true if the epoch advanced.
func (c *Collector) TryAdvance() bool {
	var (
		before = c.epoch.Load()
		ready  []func()
	)
	syncx.LockFunc(&c.mux, func() {
		ready = c.tryAdvance()
	})
	c.run(ready)
	return c.epoch.Load() != before
}

// tryAdvance must be called with the lock held.
func (c *Collector) tryAdvance() []func() {
	e := c.epoch.Load()
	if e > 0 && c.active[(e-1)%buckets].Load() != 0 {
		return nil
	}
	next := e + 1
	// Readers pinned in next-2 or earlier are gone, so whatever was retired in next-2 can be reclaimed.
	bucket := (next + 1) % buckets
	ready := c.limbo[bucket]
	c.limbo[bucket] = nil
	c.epoch.Store(next)
	return ready
}

func (c *Collector) run(ready []func()) {
	for _, fn := range ready {
		fn()
	}
	c.reclaimed.Add(uint64(len(ready)))
}

// Stats is a snapshot of [Collector] state.
type Stats struct {
	Epoch     uint64 // Epoch is the current global epoch.
	Pinned    int64  // Pinned is the number of readers currently pinned.
	Pending   int    // Pending is the number of reclaim functions waiting on readers.
	Reclaimed uint64 // Reclaimed is the number of reclaim functions that have run.
	Dropped   uint64 // Dropped is the number of retirements abandoned because limbo was full.
}

// Stats returns a snapshot of the [Collector] state.
func (c *Collector) Stats() Stats {
	stats := Stats{
		Epoch:     c.epoch.Load(),
		Reclaimed: c.reclaimed.Load(),
		Dropped:   c.dropped.Load(),
	}
	for i := range c.active {
		stats.Pinned += c.active[i].Load()
	}
	syncx.LockFunc(&c.mux, func() {
		for i := range c.limbo {
			stats.Pending += len(c.limbo[i])
		}
	})
	return stats
}
