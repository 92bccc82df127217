package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrStopped = errors.New("queue stopped")
)

// ChannelQueue is used to create a [Queue] that can be consumed as a channel.
// It creates a worker goroutine to move values from the [Queue] to the channel.
//
// This is good for cases like:
//   - When an arbitrary sized queue is needed, but a channel is more convenient.
//   - Where producers must never block on a slow consumer.
type ChannelQueue[T any] struct {
	// C is the channel where queue values will be posted.
	// It's closed once the ChannelQueue has stopped and every queued value was posted.
	C        <-chan T
	queue    *Queue[T]
	ctx      context.Context
	stop     context.CancelFunc
	mux      sync.Mutex
	stopping bool
	notify   chan struct{}
	disp     chan T
	stopped  chan struct{}
}

type channelQueueConfig struct {
	queueInitialBuffer int
	channelSize        int
}

type ChannelQueueOption func(conf *channelQueueConfig) error

// ChannelSize is used to set the buffer size of the output channel.
func ChannelSize(size int) ChannelQueueOption {
	return func(conf *channelQueueConfig) error {
		if size < 0 {
			return fmt.Errorf("invalid channel size '%d'", size)
		}
		conf.channelSize = size
		return nil
	}
}

// InitialBuffer is used to set the initial size of the internal [Queue].
func InitialBuffer(size int) ChannelQueueOption {
	return func(conf *channelQueueConfig) error {
		if size < 0 {
			return fmt.Errorf("invalid queue initial buffer size '%d'", size)
		}
		conf.queueInitialBuffer = size
		return nil
	}
}

// NewChannelQueue creates a new [ChannelQueue], and starts a goroutine to keep data flowing.
// Cancelling ctx has the same effect as [ChannelQueue.Stop].
func NewChannelQueue[T any](ctx context.Context, opts ...ChannelQueueOption) (*ChannelQueue[T], error) {
	conf := new(channelQueueConfig)
	for _, opt := range opts {
		if err := opt(conf); err != nil {
			return nil, err
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	cq := &ChannelQueue[T]{
		queue:   NewQueue[T](conf.queueInitialBuffer),
		ctx:     ctx,
		stop:    cancel,
		notify:  make(chan struct{}, 1),
		disp:    make(chan T, conf.channelSize),
		stopped: make(chan struct{}),
	}
	cq.C = cq.disp
	go cq.worker()
	return cq, nil
}

func (q *ChannelQueue[T]) worker() {
	defer close(q.stopped)
	defer close(q.disp)
	for {
		val, ok := q.queue.Pop()
		if !ok {
			select {
			case <-q.notify:
				continue
			case <-q.ctx.Done():
				q.drain()
				return
			}
		}
		select {
		case q.disp <- val:
		case <-q.ctx.Done():
			q.disp <- val
			q.drain()
			return
		}
	}
}

// drain posts everything still queued once no more values can be pushed.
func (q *ChannelQueue[T]) drain() {
	q.mux.Lock()
	q.stopping = true
	q.mux.Unlock()
	for val := range q.queue.Drain() {
		q.disp <- val
	}
}

// Stop will signal that the goroutine managing the ChannelQueue should post what remains and stop operating.
// This is implicitly called when the given context is cancelled.
func (q *ChannelQueue[T]) Stop() {
	q.stop()
}

// AwaitStop will call [ChannelQueue.Stop] and wait for all operations to cease before returning.
// The remaining values must be consumed from C for this to return.
func (q *ChannelQueue[T]) AwaitStop() {
	q.Stop()
	q.Await()
}

// Await will wait for all [ChannelQueue] operations to cease before returning.
func (q *ChannelQueue[T]) Await() {
	<-q.stopped
}

// Len gets the number of values that haven't yet been posted to C.
func (q *ChannelQueue[T]) Len() int {
	return q.queue.Len()
}

// Push will push an item to the tail of the ChannelQueue without blocking.
// [ErrStopped] is returned if the ChannelQueue is no longer accepting values.
func (q *ChannelQueue[T]) Push(val T) error {
	q.mux.Lock()
	defer q.mux.Unlock()
	if q.stopping {
		return ErrStopped
	}
	q.queue.Push(val)
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}
