package sequence

import (
	"github.com/saylorsolutions/ringbus/syncx"
	"sync"
	"sync/atomic"
)

// Group is an unordered collection of shared [Sequence].
// Scans are lock-free and may run concurrently with [Group.Add] and [Group.Remove], which copy the membership on write.
type Group struct {
	mux     sync.Mutex
	members atomic.Pointer[[]*Sequence]
}

// NewGroup creates a [Group] with the given initial members.
func NewGroup(seqs ...*Sequence) *Group {
	g := new(Group)
	g.Add(seqs...)
	return g
}

func (g *Group) load() []*Sequence {
	members := g.members.Load()
	if members == nil {
		return nil
	}
	return *members
}

// Add appends one or more [Sequence] to the [Group].
// Nil values are ignored.
func (g *Group) Add(seqs ...*Sequence) {
	if len(seqs) == 0 {
		return
	}
	syncx.LockFunc(&g.mux, func() {
		current := g.load()
		updated := make([]*Sequence, len(current), len(current)+len(seqs))
		copy(updated, current)
		for _, seq := range seqs {
			if seq == nil {
				continue
			}
			updated = append(updated, seq)
		}
		g.members.Store(&updated)
	})
}

// Remove drops the given [Sequence] from the [Group], so that it no longer takes part in [Group.Minimum] and [Group.Maximum].
// Returns false if the [Sequence] was not a member.
func (g *Group) Remove(seq *Sequence) bool {
	return syncx.LockFuncT(&g.mux, func() bool {
		current := g.load()
		for i, member := range current {
			if member != seq {
				continue
			}
			updated := make([]*Sequence, 0, len(current)-1)
			updated = append(updated, current[:i]...)
			updated = append(updated, current[i+1:]...)
			g.members.Store(&updated)
			return true
		}
		return false
	})
}

// Len returns the number of members.
func (g *Group) Len() int {
	return len(g.load())
}

// Minimum returns the smallest value among all members, or fallback if it's smaller.
// An empty [Group] returns fallback.
func (g *Group) Minimum(fallback uint64) uint64 {
	minimum := fallback
	for _, seq := range g.load() {
		minimum = min(minimum, seq.Get())
	}
	return minimum
}

// Maximum returns the largest value among all members, or fallback if it's larger.
// An empty [Group] returns fallback.
func (g *Group) Maximum(fallback uint64) uint64 {
	maximum := fallback
	for _, seq := range g.load() {
		maximum = max(maximum, seq.Get())
	}
	return maximum
}
