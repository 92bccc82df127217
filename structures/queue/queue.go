package queue

import (
	"iter"
	"sync"
)

// Queue is a concurrency-safe, unbounded FIFO queue.
type Queue[T any] struct {
	mux    sync.Mutex
	values []T
	head   int
}

func NewQueue[T any](initialBuffer ...int) *Queue[T] {
	if len(initialBuffer) > 0 {
		return &Queue[T]{values: make([]T, 0, initialBuffer[0])}
	}
	return &Queue[T]{}
}

// Len gets the length of the Queue
func (q *Queue[T]) Len() int {
	q.mux.Lock()
	defer q.mux.Unlock()
	return len(q.values) - q.head
}

// Push will push an item to the tail of the Queue.
func (q *Queue[T]) Push(vals ...T) {
	q.mux.Lock()
	defer q.mux.Unlock()
	q.values = append(q.values, vals...)
}

// Pop will pop an item from the head of the Queue.
// False will be returned if the Queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	q.mux.Lock()
	defer q.mux.Unlock()
	var mt T
	if q.head == len(q.values) {
		return mt, false
	}
	val := q.values[q.head]
	q.values[q.head] = mt
	q.head++
	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head == len(q.values) {
		q.values = q.values[:0]
		q.head = 0
	} else if q.head > 32 && q.head*2 > len(q.values) {
		n := copy(q.values, q.values[q.head:])
		clear(q.values[n:])
		q.values = q.values[:n]
		q.head = 0
	}
	return val, true
}

// Drain returns an iterator that pops values until the Queue is empty.
func (q *Queue[T]) Drain() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			val, ok := q.Pop()
			if !ok {
				return
			}
			if !yield(val) {
				return
			}
		}
	}
}
