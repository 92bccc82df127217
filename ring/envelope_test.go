package ring

import (
	"context"
	"fmt"
	"github.com/saylorsolutions/ringbus/syncx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEnvelope_ReadEmpty(t *testing.T) {
	e := NewEnvelope()
	assert.Equal(t, uint64(0), e.Sequence())
	r, ok := ReadAs[string](e)
	assert.False(t, ok)
	assert.Nil(t, r)
}

func TestEnvelope_Overwrite(t *testing.T) {
	e := NewEnvelope()
	Write(e, 1, "Hello world!")
	assert.Equal(t, uint64(1), e.Sequence())

	first, ok := ReadAs[string](e)
	require.True(t, ok)
	assert.Equal(t, "Hello world!", first.Value())
	assert.Equal(t, uint64(1), first.Sequence())

	Write(e, 5, "Goodbye!")
	second, ok := ReadAs[string](e)
	require.True(t, ok)
	assert.Equal(t, "Goodbye!", second.Value())
	assert.Equal(t, "Hello world!", first.Value(), "Earlier read should be unaffected by the overwrite")

	first.Release()
	second.Release()
	second.Release()
	assert.Panics(t, func() {
		first.Value()
	}, "Using a released read is a defect")
}

func TestEnvelope_TypeMismatch(t *testing.T) {
	e := NewEnvelope()
	Write(e, 1, 42)
	_, ok := ReadAs[string](e)
	assert.False(t, ok, "Reading a different type should yield nothing")
	_, ok = ReadAs[int64](e)
	assert.False(t, ok)
	r, ok := ReadAs[int](e)
	require.True(t, ok)
	assert.Equal(t, 42, r.Value())
	r.Release()

	e.Overwrite(2, "dynamic")
	s, ok := ReadAs[string](e)
	require.True(t, ok)
	assert.Equal(t, "dynamic", s.Value())
	s.Release()
}

func TestEnvelope_NilInterfaceValue(t *testing.T) {
	e := NewEnvelope()
	Write[error](e, 1, nil)
	r, ok := ReadAs[error](e)
	require.True(t, ok)
	assert.Nil(t, r.Value())
	r.Release()
}

func TestEnvelope_SequenceNeverDecreases(t *testing.T) {
	e := NewEnvelope()
	Write(e, 8, "new")
	Write(e, 4, "stale")
	assert.Equal(t, uint64(8), e.Sequence())

	r, ok := ReadAs[string](e)
	require.True(t, ok)
	defer r.Release()
	assert.Equal(t, "stale", r.Value())
	assert.Equal(t, uint64(4), r.Sequence(), "A read reports the sequence its value was written with")
}

func TestEnvelope_WakesWaiters(t *testing.T) {
	e := NewEnvelope()
	p := syncx.NewParker()
	e.AddWaiter(p)
	e.AddWaiter(p)
	assert.Equal(t, 1, e.Waiters(), "Duplicate registrations should collapse")

	woke := make(chan error)
	go func() {
		woke <- p.Park(context.Background())
	}()
	time.Sleep(10 * time.Millisecond)
	Write(e, 1, "wake up")
	select {
	case err := <-woke:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Waiter should have been woken by the write")
	}
	assert.Equal(t, 0, e.Waiters(), "Waiters are drained on write")

	e.AddWaiter(p)
	e.RemoveWaiter(p)
	e.RemoveWaiter(p)
	assert.Equal(t, 0, e.Waiters())
}

// A reader holding a read across many overwrites must keep seeing exactly what it read, even though replaced payloads are recycled.
func TestEnvelope_ReadStableAcrossRecycling(t *testing.T) {
	const (
		readers = 4
		writes  = 50_000
	)
	var (
		e       = NewEnvelope()
		wg      sync.WaitGroup
		stop    atomic.Bool
		corrupt atomic.Int64
		reads   atomic.Int64
	)
	Write(e, 1, "value-1")

	wg.Add(readers)
	for i := 0; i < readers; i++ {
		go func() {
			defer wg.Done()
			for !stop.Load() {
				r, ok := ReadAs[string](e)
				if !ok {
					corrupt.Add(1)
					continue
				}
				first := r.Value()
				if first != fmt.Sprintf("value-%d", r.Sequence()) {
					corrupt.Add(1)
				}
				for j := 0; j < 10; j++ {
					if r.Value() != first {
						corrupt.Add(1)
					}
				}
				r.Release()
				reads.Add(1)
			}
		}()
	}
	for i := 2; i <= writes; i++ {
		Write(e, uint64(i), fmt.Sprintf("value-%d", i))
	}
	stop.Store(true)
	wg.Wait()
	assert.Equal(t, int64(0), corrupt.Load(), "Reads should never change while held")
	assert.Positive(t, reads.Load())
	assert.Positive(t, e.collector.Stats().Reclaimed, "Replaced payloads should have been recycled")
}
