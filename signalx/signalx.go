// Package signalx ties process signals to [context.Context] cancellation.
package signalx

import (
	"context"
	"os"
	"os/signal"
)

func notify(signals []os.Signal) chan os.Signal {
	if len(signals) == 0 {
		panic("no signals passed to signal context")
	}
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, signals...)
	return sigs
}

// SignalCtx will set up a context that will be cancelled if any of the given signals are received.
func SignalCtx(parent context.Context, signals ...os.Signal) context.Context {
	sigs := notify(signals)
	ctx, cancel := context.WithCancel(parent)
	go func() {
		defer cancel()
		select {
		case <-sigs:
		case <-ctx.Done():
		}
		signal.Stop(sigs)
	}()
	return ctx
}

// SignalExitCtx will set up a context that will be cancelled if any of the given signals are received.
// If a second signal is received while shutting down, then [os.Exit] will be called with a non-zero exit code.
func SignalExitCtx(parent context.Context, signals ...os.Signal) context.Context {
	sigs := notify(signals)
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-sigs:
			cancel()
		case <-ctx.Done():
			signal.Stop(sigs)
			return
		}
		<-sigs
		os.Exit(1)
	}()
	return ctx
}
