package transport

import (
	"context"
	"errors"
	"fmt"
	"github.com/saylorsolutions/ringbus/structures/queue"
	"github.com/saylorsolutions/ringbus/syncx"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

var (
	ErrChannelClosed = errors.New("channel closed")
)

// Channel sends and receives values of type T as framed [Message] values.
// Send and Recv are safe for concurrent use.
type Channel[T any] struct {
	conn     io.ReadWriteCloser
	codec    Codec[T]
	log      *slog.Logger
	maxFrame uint32

	writeMux sync.Mutex
	incoming <-chan T
	push     func(T) error
	finish   func()

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      syncx.Future[error]
}

// NewChannel creates a [Channel] over conn and starts reading from it.
// The [Channel] takes ownership of conn, closing it when the [Channel] is closed.
func NewChannel[T any](conn io.ReadWriteCloser, opts ...Option) (*Channel[T], error) {
	conf, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return newChannel[T](conn, conf)
}

func newChannel[T any](conn io.ReadWriteCloser, conf *options) (*Channel[T], error) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := &Channel[T]{
		conn:     conn,
		codec:    NewCodec[T](),
		log:      conf.logger,
		maxFrame: conf.maxFrameSize,
		ctx:      ctx,
		cancel:   cancel,
		done:     syncx.NewFuture[error](),
	}
	if conf.bound > 0 {
		bounded := make(chan T, conf.bound)
		ch.incoming = bounded
		ch.push = func(val T) error {
			select {
			case bounded <- val:
				return nil
			case <-ctx.Done():
				return ErrChannelClosed
			}
		}
		ch.finish = func() { close(bounded) }
	} else {
		cq, err := queue.NewChannelQueue[T](context.Background())
		if err != nil {
			cancel()
			return nil, err
		}
		ch.incoming = cq.C
		ch.push = cq.Push
		ch.finish = cq.Stop
	}
	go ch.readLoop()
	return ch, nil
}

func (c *Channel[T]) readLoop() {
	var loopErr error
	defer func() {
		c.finish()
		c.done.Resolve(loopErr)
	}()
	for {
		msg, err := ReadFrame(c.conn, c.maxFrame)
		if err != nil {
			if c.ctx.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				loopErr = err
				c.log.Error("Failed to read frame, closing channel", "error", err)
			}
			c.cancel()
			return
		}
		val, err := c.codec.Decode(msg)
		if err != nil {
			c.log.Warn("Dropping message", "id", msg.ID, "error", err)
			continue
		}
		if err := c.push(val); err != nil {
			return
		}
	}
}

// Send encodes val and writes it to the connection.
// If ctx has a deadline and the connection supports write deadlines, the write is bounded by it.
func (c *Channel[T]) Send(ctx context.Context, val T) error {
	if c.ctx.Err() != nil {
		return ErrChannelClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := c.codec.Encode(val)
	if err != nil {
		return err
	}
	c.writeMux.Lock()
	defer c.writeMux.Unlock()
	if dl, ok := c.conn.(interface{ SetWriteDeadline(time.Time) error }); ok {
		deadline, _ := ctx.Deadline()
		_ = dl.SetWriteDeadline(deadline)
	}
	if err := WriteFrame(c.conn, msg, c.maxFrame); err != nil {
		if errors.Is(err, ErrFrameTooLarge) {
			return err
		}
		return fmt.Errorf("failed to send message %s: %w", msg.ID, err)
	}
	return nil
}

// Recv waits for the next value from the connection.
// Once the connection is closed and every received value was consumed, [ErrChannelClosed] is returned.
func (c *Channel[T]) Recv(ctx context.Context) (T, error) {
	select {
	case val, more := <-c.incoming:
		if !more {
			var mt T
			return mt, ErrChannelClosed
		}
		return val, nil
	case <-ctx.Done():
		var mt T
		return mt, ctx.Err()
	}
}

// Close closes the connection and waits for reading to stop.
func (c *Channel[T]) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	<-c.done.Done()
	return err
}

// Done resolves with the error that stopped reading, which is nil for a clean close.
func (c *Channel[T]) Done() syncx.Future[error] {
	return c.done
}
