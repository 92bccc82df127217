package transport

import (
	"context"
	"github.com/saylorsolutions/ringbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net"
	"testing"
	"time"
)

func testBus(t *testing.T) *ringbus.Bus {
	t.Helper()
	bus, err := ringbus.New(ringbus.Capacity(16))
	require.NoError(t, err)
	t.Cleanup(bus.Close)
	return bus
}

func TestBridge(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	left, right := net.Pipe()
	chA, err := NewChannel[string](left)
	require.NoError(t, err)
	chB, err := NewChannel[string](right)
	require.NoError(t, err)
	busA, busB := testBus(t), testBus(t)

	bridged := make(chan error, 2)
	go func() { bridged <- Bridge(ctx, busA, chA) }()
	go func() { bridged <- Bridge(ctx, busB, chB) }()
	require.Eventually(t, func() bool {
		return busA.Stats().Subscribers == 1 && busB.Stats().Subscribers == 1
	}, time.Second, 5*time.Millisecond)

	subA, err := ringbus.Subscribe[string](busA)
	require.NoError(t, err)
	subB, err := ringbus.Subscribe[string](busB)
	require.NoError(t, err)

	_, err = ringbus.Publish(busA, "from a")
	require.NoError(t, err)
	read, err := subB.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "from a", read.Value())
	read.Release()

	_, err = ringbus.Publish(busB, "from b")
	require.NoError(t, err)
	for _, expected := range []string{"from a", "from b"} {
		read, err := subA.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, expected, read.Value(), "Relayed events must not be echoed back")
		read.Release()
	}
	read, err = subB.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "from b", read.Value())
	read.Release()

	_, err = ringbus.Publish(busA, 5)
	require.NoError(t, err)
	read, err = subA.TryRecv()
	assert.NoError(t, err)
	assert.Nil(t, read, "Other types aren't relayed")

	cancel()
	for range 2 {
		select {
		case err := <-bridged:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Bridge should stop when the context is done")
		}
	}
}

func TestInboundSet(t *testing.T) {
	s := newInboundSet()
	for _, seq := range []uint64{2, 3, 5, 9} {
		s.mark(seq)
	}
	assert.False(t, s.take(4), "4 wasn't published from the channel")
	assert.Equal(t, 2, s.size(), "Sequences skipped over should be forgotten")
	assert.True(t, s.take(5))
	assert.False(t, s.take(5), "A sequence is only taken once")
	assert.Equal(t, 1, s.size())
	assert.True(t, s.take(9))
	assert.Equal(t, 0, s.size())
}

func TestBridge_ClosedBus(t *testing.T) {
	left, _ := net.Pipe()
	ch, err := NewChannel[string](left)
	require.NoError(t, err)
	bus := testBus(t)
	bus.Close()
	assert.ErrorIs(t, Bridge(context.Background(), bus, ch), ringbus.ErrClosed)
	_ = ch.Close()
}
