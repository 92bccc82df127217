package main

import (
	"context"
	"errors"
	"github.com/gorilla/websocket"
	"github.com/saylorsolutions/ringbus"
	"github.com/saylorsolutions/ringbus/cli"
	"github.com/saylorsolutions/ringbus/transport"
	flag "github.com/spf13/pflag"
	"net"
	"net/http"
	"sync"
)

func serveCommand(cmds *cli.CommandSet, a *app) {
	cmd := cmds.AddCommand("serve", "Accepts connections and relays string messages between all of them through a bus")
	cmd.Usage("[FLAGS...]")
	flags := cmd.Flags()
	addCommonFlags(flags)
	flags.Uint64("capacity", 0, "Overrides RINGBUS_CAPACITY, must be a power of two")
	flags.String("addr", "", "Overrides RINGBUS_LISTEN_ADDR")
	flags.Int("queue-bound", 0, "Overrides RINGBUS_QUEUE_BOUND, 0 is unbounded")
	flags.String("metrics-addr", "", "Overrides RINGBUS_METRICS_ADDR")
	flags.String("ws-addr", "", "Overrides RINGBUS_WS_ADDR, serving websocket clients at /ws")
	cmd.Does(func(ctx context.Context, _ *flag.FlagSet, _ *cli.Printer) error {
		bus, err := a.newBus(ctx)
		if err != nil {
			return err
		}
		defer bus.Close()
		opts, err := a.transportOptions(true)
		if err != nil {
			return err
		}
		l, err := transport.Listen(a.conf.ListenAddr, opts...)
		if err != nil {
			return err
		}
		return serve(ctx, bus, l, a)
	})
}

// serve accepts connections until ctx is done, bridging each to bus.
func serve(ctx context.Context, bus *ringbus.Bus, l *transport.Listener, a *app) error {
	sub, err := ringbus.Subscribe[string](bus)
	if err != nil {
		return err
	}
	var wg sync.WaitGroup
	if len(a.conf.WSAddr) > 0 {
		mux := http.NewServeMux()
		mux.Handle("/ws", wsHandler(ctx, bus, a, &wg))
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.serveHTTP(ctx, "websocket", a.conf.WSAddr, mux)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = ringbus.Consume(ctx, sub, func(msg string) error {
			a.log.Info("Message received", "message", msg)
			return nil
		}, nil)
	}()
	go func() {
		<-ctx.Done()
		_ = l.Close()
		sub.Close()
	}()

	for {
		ch, err := transport.Accept[string](l)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			a.log.Warn("Failed to accept connection", "error", err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := transport.Bridge(ctx, bus, ch); err != nil {
				a.log.Warn("Connection closed with error", "error", err)
			}
		}()
	}
	wg.Wait()
	return nil
}

// wsHandler upgrades requests to websockets and bridges each one to bus.
func wsHandler(ctx context.Context, bus *ringbus.Bus, a *app, wg *sync.WaitGroup) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		opts, err := a.transportOptions(true)
		if err != nil {
			http.Error(w, "transport misconfigured", http.StatusInternalServerError)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			a.log.Warn("Failed to upgrade websocket", "error", err)
			return
		}
		ch, err := transport.NewChannel[string](transport.WebSocket(conn), opts...)
		if err != nil {
			_ = conn.Close()
			a.log.Warn("Failed to create websocket channel", "error", err)
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := transport.Bridge(ctx, bus, ch); err != nil {
				a.log.Warn("Websocket closed with error", "remote", r.RemoteAddr, "error", err)
			}
		}()
	})
}

func (a *app) transportOptions(server bool) ([]transport.Option, error) {
	opts := []transport.Option{transport.Logger(a.log)}
	if a.conf.QueueBound > 0 {
		opts = append(opts, transport.Bound(a.conf.QueueBound))
	} else {
		opts = append(opts, transport.Unbounded())
	}
	tlsConf, err := a.conf.ClientTLS()
	if server {
		tlsConf, err = a.conf.ServerTLS()
	}
	if err != nil {
		return nil, err
	}
	if tlsConf != nil {
		opts = append(opts, transport.TLS(tlsConf))
	}
	return opts, nil
}
