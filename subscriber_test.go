package ringbus

import (
	"context"
	"github.com/saylorsolutions/ringbus/ring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

func TestSubscribe_LateSubscriber(t *testing.T) {
	bus := testBus(t, Capacity(8))
	_, err := PublishBatch(bus, "a", "b")
	require.NoError(t, err)

	sub, err := Subscribe[string](bus)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), sub.Sequence())
	read, err := sub.TryRecv()
	assert.NoError(t, err)
	assert.Nil(t, read, "Events published before subscribing aren't received")

	_, err = Publish(bus, "c")
	require.NoError(t, err)
	assert.Equal(t, "c", recvValue(t, sub))
}

func TestSubscribe_WhilePublishing(t *testing.T) {
	bus := testBus(t, Capacity(4))
	stop := make(chan struct{})
	published := make(chan struct{})
	go func() {
		defer close(published)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if _, err := Publish(bus, i); err != nil {
				return
			}
		}
	}()
	defer func() {
		close(stop)
		<-published
	}()

	for range 100 {
		sub, err := Subscribe[int](bus)
		require.NoError(t, err)
		last := sub.Sequence()
		for range 10 {
			read, err := sub.RecvTimeout(testTimeout)
			require.NoError(t, err)
			require.Equal(t, last+1, read.Sequence(), "Subscriber should see every event after subscribing")
			last = read.Sequence()
			read.Release()
		}
		require.Equal(t, uint64(0), sub.Missed())
		sub.Close()
	}
}

func TestSubscriber_TypedFiltering(t *testing.T) {
	type customEvent struct {
		Name string
	}
	bus := testBus(t, Capacity(16))
	ints, err := Subscribe[int](bus)
	require.NoError(t, err)
	strs, err := Subscribe[string](bus)
	require.NoError(t, err)
	customs, err := Subscribe[customEvent](bus)
	require.NoError(t, err)

	_, _ = Publish(bus, 1)
	_, _ = Publish(bus, "one")
	_, _ = Publish(bus, int64(2))
	_, _ = Publish(bus, 2)
	_, _ = Publish(bus, customEvent{Name: "custom"})
	_, _ = Publish(bus, "two")

	assert.Equal(t, 1, recvValue(t, ints))
	assert.Equal(t, 2, recvValue(t, ints), "int64 shouldn't be received as int")
	assert.Equal(t, "one", recvValue(t, strs))
	assert.Equal(t, "two", recvValue(t, strs))
	assert.Equal(t, customEvent{Name: "custom"}, recvValue(t, customs))

	read, err := ints.TryRecv()
	assert.NoError(t, err)
	assert.Nil(t, read)
	assert.Equal(t, uint64(6), ints.Sequence(), "Skipped events still move the cursor")
}

func TestSubscriber_RecvWaitsForPublish(t *testing.T) {
	bus := testBus(t, Capacity(4))
	sub, err := Subscribe[int](bus)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = Publish(bus, 42)
	}()
	assert.Equal(t, 42, recvValue(t, sub))
}

func TestSubscriber_RecvContext(t *testing.T) {
	bus := testBus(t, Capacity(4))
	sub, err := Subscribe[int](bus)
	require.NoError(t, err)

	_, err = sub.RecvTimeout(20 * time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sub.Recv(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubscriber_Close(t *testing.T) {
	bus := testBus(t, Capacity(2))
	sub, err := Subscribe[int](bus)
	require.NoError(t, err)
	_, err = PublishBatch(bus, 1, 2)
	require.NoError(t, err)

	published := make(chan struct{})
	go func() {
		_, _ = Publish(bus, 3)
		close(published)
	}()
	select {
	case <-published:
		t.Fatal("Publish should be gated by the subscriber")
	case <-time.After(30 * time.Millisecond):
	}

	sub.Close()
	select {
	case <-published:
	case <-time.After(testTimeout):
		t.Fatal("Closing the subscriber should release the gate")
	}
	_, err = sub.Recv(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NotPanics(t, sub.Close)
}

func TestSubscriber_CloseWakesRecv(t *testing.T) {
	bus := testBus(t, Capacity(4))
	sub, err := Subscribe[int](bus)
	require.NoError(t, err)

	errs := make(chan error, 1)
	go func() {
		_, err := sub.Recv(context.Background())
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)
	sub.Close()
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(testTimeout):
		t.Fatal("Recv should have been woken by Close")
	}
}

// lappedSubscriber returns a subscriber that no longer gates publishers, so that it can be lapped.
func lappedSubscriber(t *testing.T, bus *Bus, opts ...SubscribeOption) *Subscriber[int] {
	t.Helper()
	sub, err := Subscribe[int](bus, opts...)
	require.NoError(t, err)
	require.True(t, bus.ring.Sequencer().Deregister(sub.cursor))
	for i := 1; i <= int(bus.Capacity())+1; i++ {
		_, err := Publish(bus, i)
		require.NoError(t, err)
	}
	return sub
}

func TestSubscriber_LapSkip(t *testing.T) {
	bus := testBus(t, Capacity(4))
	sub := lappedSubscriber(t, bus)

	assert.Equal(t, 2, recvValue(t, sub), "Event 1 was overwritten by 5")
	assert.Equal(t, uint64(1), sub.Missed())
	assert.Equal(t, uint64(1), bus.Stats().Lapped)
	for i := 3; i <= 5; i++ {
		assert.Equal(t, i, recvValue(t, sub))
	}
}

func TestSubscriber_LapError(t *testing.T) {
	bus := testBus(t, Capacity(4), DefaultLapPolicy(LapError))
	sub := lappedSubscriber(t, bus)

	_, err := sub.TryRecv()
	assert.ErrorIs(t, err, ErrLapped)
	assert.Equal(t, uint64(1), sub.Missed())
	assert.Equal(t, 2, recvValue(t, sub), "Lapped error should only be reported once")

	skipping := lappedSubscriber(t, testBus(t, Capacity(4), DefaultLapPolicy(LapError)), OnLap(LapSkip))
	assert.Equal(t, 2, recvValue(t, skipping), "Subscriber option overrides the bus default")
}

func TestSubscriber_OverwrittenWhileReading(t *testing.T) {
	bus := testBus(t, Capacity(4))
	sub, err := Subscribe[int](bus)
	require.NoError(t, err)
	require.True(t, bus.ring.Sequencer().Deregister(sub.cursor))
	for i := 1; i <= 5; i++ {
		_, err := Publish(bus, i)
		require.NoError(t, err)
	}
	sub.cursor.Set(4)
	// A late write into the slot replaces the event announced as sequence 5.
	ring.Write(bus.ring.Envelope(1), 1, 99)
	require.Equal(t, uint64(5), bus.ring.Envelope(1).Sequence())

	read, err := sub.TryRecv()
	assert.NoError(t, err)
	assert.Nil(t, read, "The replaced event must not be delivered as sequence 5")
	assert.Equal(t, uint64(1), sub.Missed())
	assert.Equal(t, uint64(5), sub.Sequence())
}

func TestBus_ManyPublishersManySubscribers(t *testing.T) {
	const (
		numPublishers  = 4
		numSubscribers = 3
		numEvents      = 10_000
	)
	bus := testBus(t, Capacity(64))
	subs := make([]*Subscriber[int], numSubscribers)
	for i := range subs {
		sub, err := Subscribe[int](bus)
		require.NoError(t, err)
		subs[i] = sub
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	var wg sync.WaitGroup
	for i := range subs {
		wg.Add(1)
		go func(sub *Subscriber[int]) {
			defer wg.Done()
			lastSeen := make([]int, numPublishers)
			for range numPublishers * numEvents {
				read, err := sub.Recv(ctx)
				if !assert.NoError(t, err) {
					return
				}
				val := read.Value()
				read.Release()
				publisher, n := val/numEvents, val%numEvents+1
				assert.Equal(t, lastSeen[publisher]+1, n, "Events of a publisher must arrive in order")
				lastSeen[publisher] = n
			}
			read, err := sub.TryRecv()
			assert.NoError(t, err)
			assert.Nil(t, read, "No extra events should be received")
			assert.Equal(t, uint64(0), sub.Missed())
		}(subs[i])
	}
	for p := range numPublishers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range numEvents {
				_, err := Publish(bus, p*numEvents+i)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(numPublishers*numEvents), bus.Stats().Published)
	assert.Equal(t, uint64(numPublishers*numEvents), bus.Cursor())
}
