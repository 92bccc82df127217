package transport

import (
	"context"
	"errors"
	"github.com/saylorsolutions/ringbus"
	"github.com/saylorsolutions/ringbus/syncx"
	"golang.org/x/sync/errgroup"
	"sync"
)

// Bridge relays values of type T between bus and ch until ctx is done, ch is closed, or bus is closed.
// Every T published to bus is sent to ch, and every T received from ch is published to bus.
// Values received from ch are not sent back to ch.
func Bridge[T any](ctx context.Context, bus *ringbus.Bus, ch *Channel[T]) error {
	sub, err := ringbus.Subscribe[T](bus)
	if err != nil {
		return err
	}
	defer sub.Close()
	log := bus.Logger()

	inbound := newInboundSet()
	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		defer sub.Close()
		for {
			val, err := ch.Recv(ctx)
			if err != nil {
				if errors.Is(err, ErrChannelClosed) {
					return nil
				}
				return err
			}
			_, err = ringbus.PublishFunc(bus, val, inbound.mark)
			if err != nil {
				return err
			}
		}
	})
	grp.Go(func() error {
		defer func() {
			_ = ch.Close()
		}()
		for {
			read, err := sub.Recv(ctx)
			if err != nil {
				if errors.Is(err, ringbus.ErrClosed) {
					return nil
				}
				return err
			}
			seq := read.Sequence()
			val := read.Value()
			read.Release()
			if inbound.take(seq) {
				continue
			}
			if err := ch.Send(ctx, val); err != nil {
				log.Error("Failed to relay event", "sequence", seq, "error", err)
				return err
			}
		}
	})
	err = grp.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// inboundSet holds the sequences published from a channel, so they're not echoed back to it.
type inboundSet struct {
	mux  sync.Mutex
	seqs map[uint64]struct{}
}

func newInboundSet() *inboundSet {
	return &inboundSet{seqs: map[uint64]struct{}{}}
}

func (s *inboundSet) mark(seq uint64) {
	syncx.LockFunc(&s.mux, func() {
		s.seqs[seq] = struct{}{}
	})
}

// take reports whether seq was published from the channel.
// Sequences below seq are forgotten too, since a subscriber never goes back to them.
func (s *inboundSet) take(seq uint64) bool {
	return syncx.LockFuncT(&s.mux, func() bool {
		_, ok := s.seqs[seq]
		for marked := range s.seqs {
			if marked <= seq {
				delete(s.seqs, marked)
			}
		}
		return ok
	})
}

func (s *inboundSet) size() int {
	return syncx.LockFuncT(&s.mux, func() int {
		return len(s.seqs)
	})
}
