package ringbus

import (
	"context"
	"errors"
)

// Consume calls handler for each event received by sub until ctx is done or sub is closed.
// Errors returned by handler are passed to onErr, if given, and don't stop consumption.
// A closed [Subscriber] or [Bus] ends consumption without error, otherwise the context error is returned.
func Consume[T any](ctx context.Context, sub *Subscriber[T], handler func(T) error, onErr func(error)) error {
	if handler == nil {
		panic("nil handler")
	}
	for {
		read, err := sub.Recv(ctx)
		if err != nil {
			switch {
			case errors.Is(err, ErrClosed):
				return nil
			case errors.Is(err, ErrLapped):
				if onErr != nil {
					onErr(err)
				}
				continue
			default:
				return err
			}
		}
		err = handler(read.Value())
		read.Release()
		if err != nil && onErr != nil {
			onErr(err)
		}
	}
}
