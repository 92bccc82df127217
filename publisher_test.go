package ringbus

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestAsyncPublisher(t *testing.T) {
	bus := testBus(t, Capacity(4))
	sub, err := Subscribe[string](bus)
	require.NoError(t, err)
	pub := NewAsyncPublisher[string](bus)

	assert.True(t, pub.Ready())
	require.NoError(t, pub.Accept("a"))
	assert.False(t, pub.Ready(), "An event is pending")
	assert.ErrorIs(t, pub.Accept("b"), ErrNotReady)
	assert.Equal(t, uint64(1), bus.Cursor(), "The slot is claimed on accept")

	read, err := sub.TryRecv()
	assert.NoError(t, err)
	assert.Nil(t, read, "Nothing is written before flushing")

	pub.Flush()
	assert.True(t, pub.Ready())
	assert.Equal(t, "a", recvValue(t, sub))
	assert.NotPanics(t, pub.Flush, "Flushing with nothing pending does nothing")
	assert.Equal(t, uint64(1), bus.Stats().Published)
}

func TestAsyncPublisher_NotReadyWhenFull(t *testing.T) {
	bus := testBus(t, Capacity(2))
	sub, err := Subscribe[int](bus)
	require.NoError(t, err)
	pub := NewAsyncPublisher[int](bus)

	for i := range 2 {
		require.True(t, pub.Ready())
		require.NoError(t, pub.Accept(i))
		pub.Flush()
	}
	assert.False(t, pub.Ready(), "The subscriber hasn't read anything yet")

	accepted := make(chan error, 1)
	go func() {
		accepted <- pub.Accept(99)
	}()
	select {
	case err := <-accepted:
		assert.ErrorIs(t, err, ErrNotReady, "A full ring should be reported, not waited on")
	case <-time.After(testTimeout):
		t.Fatal("Accept should not wait for capacity")
	}
	assert.Equal(t, uint64(2), bus.Cursor(), "Nothing should be claimed")

	assert.Equal(t, 0, recvValue(t, sub))
	assert.True(t, pub.Ready())
	require.NoError(t, pub.Accept(99))
	pub.Flush()
	assert.Equal(t, 1, recvValue(t, sub))
	assert.Equal(t, 99, recvValue(t, sub))
}

func TestAsyncPublisher_Close(t *testing.T) {
	bus := testBus(t, Capacity(4))
	sub, err := Subscribe[string](bus)
	require.NoError(t, err)
	pub := NewAsyncPublisher[string](bus)

	require.NoError(t, pub.Accept("pending"))
	pub.Close()
	assert.Equal(t, "pending", recvValue(t, sub), "Close should write the claimed slot")
	assert.False(t, pub.Ready())
	assert.ErrorIs(t, pub.Accept("late"), ErrClosed)

	other := NewAsyncPublisher[string](bus)
	bus.Close()
	assert.False(t, other.Ready())
	assert.ErrorIs(t, other.Accept("late"), ErrClosed)
}
