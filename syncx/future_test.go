package syncx

import (
	"context"
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

func TestFuture_Await(t *testing.T) {
	var order = make([]int, 0, 4)
	f := NewFuture[int]()
	order = append(order, 1)
	go func() {
		time.Sleep(100 * time.Millisecond)
		order = append(order, 2)
		f.Resolve(3)

		// Make sure that subsequent calls don't actually do anything
		f.Resolve(5)
		f.Resolve(6)
	}()
	order = append(order, f.Await())
	assert.Equal(t, 3, f.Await(), "The same value should be returned again with Await")
	order = append(order, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, order, "Processing should happen in the expected order")
}

func TestFuture_AwaitContext(t *testing.T) {
	f := NewFuture[int]()
	go func() {
		time.Sleep(150 * time.Millisecond)
		f.Resolve(5)
	}()
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		val, err := f.AwaitContext(ctx)
		cancel()
		assert.Equal(t, 0, val)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
	<-f.Done()
	val, err := f.AwaitContext(context.Background())
	assert.Equal(t, 5, val)
	assert.NoError(t, err)
	assert.Equal(t, 7, StaticFuture(7).Await(time.Millisecond))
}
