package queue

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
)

func TestNewChannelQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cq, err := NewChannelQueue[int](ctx, ChannelSize(1), InitialBuffer(10))
	require.NoError(t, err)

	var (
		sum      int
		expected int
		wg       sync.WaitGroup
	)
	wg.Add(10)
	for i := 0; i < 10; i++ {
		expected += i + 1
		go func() {
			defer wg.Done()
			assert.NoError(t, cq.Push(i+1))
		}()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for val := range cq.C {
			sum += val
		}
	}()
	wg.Wait()
	cq.AwaitStop()
	<-done
	assert.Equal(t, 0, cq.Len())
	assert.Equal(t, expected, sum)
	assert.ErrorIs(t, cq.Push(1), ErrStopped)
}

func TestChannelQueue_PushNeverBlocks(t *testing.T) {
	cq, err := NewChannelQueue[int](context.Background())
	require.NoError(t, err)

	for i := range 100 {
		require.NoError(t, cq.Push(i))
	}
	cq.Stop()
	var received []int
	for val := range cq.C {
		received = append(received, val)
	}
	assert.Len(t, received, 100, "Values queued before stopping are still posted")
	for i, val := range received {
		assert.Equal(t, i, val)
	}
}

func TestChannelQueue_InvalidOptions(t *testing.T) {
	_, err := NewChannelQueue[int](context.Background(), ChannelSize(-1))
	assert.Error(t, err)
	_, err = NewChannelQueue[int](context.Background(), InitialBuffer(-1))
	assert.Error(t, err)
}
