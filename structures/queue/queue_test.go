package queue

import (
	"github.com/stretchr/testify/assert"
	"slices"
	"testing"
)

func TestNewQueue(t *testing.T) {
	q := NewQueue[int]()
	assert.Equal(t, 0, q.Len())
	val, ok := q.Pop()
	assert.False(t, ok)
	assert.Equal(t, 0, val)

	q.Push(1)
	assert.Equal(t, 1, q.Len())
	val, ok = q.Pop()
	assert.True(t, ok)
	assert.Equal(t, 1, val)

	q.Push(1, 2, 3)
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, []int{1, 2, 3}, slices.Collect(q.Drain()))
	assert.Equal(t, 0, q.Len())
}

func TestQueue_Compaction(t *testing.T) {
	q := NewQueue[int](8)
	next := 0
	for i := range 1000 {
		q.Push(i)
		if i%3 == 0 {
			val, ok := q.Pop()
			assert.True(t, ok)
			assert.Equal(t, next, val, "Order must survive compaction")
			next++
		}
	}
	assert.Equal(t, 1000-next, q.Len())
	for val := range q.Drain() {
		assert.Equal(t, next, val)
		next++
	}
	assert.Equal(t, 1000, next)
}
