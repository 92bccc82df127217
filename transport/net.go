package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"github.com/saylorsolutions/ringbus/patterns/retry"
	"net"
)

// Dial connects to addr over TCP, or TLS if the [TLS] option is given, and returns a [Channel] over the connection.
// Failed attempts are retried as configured with [DialRetry].
func Dial[T any](ctx context.Context, addr string, opts ...Option) (*Channel[T], error) {
	conf, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	var (
		conn     net.Conn
		attempts int
	)
	settings := conf.dialRetry.Copy()
	settings.Context = ctx
	err = retry.WithSettings(settings, func() (bool, error) {
		attempts++
		var dialErr error
		if conf.tlsConfig != nil {
			dialer := &tls.Dialer{Config: conf.tlsConfig}
			conn, dialErr = dialer.DialContext(ctx, "tcp", addr)
		} else {
			var dialer net.Dialer
			conn, dialErr = dialer.DialContext(ctx, "tcp", addr)
		}
		if dialErr != nil {
			conf.logger.Debug("Dial attempt failed", "addr", addr, "attempt", attempts, "error", dialErr)
			return ctx.Err() == nil, dialErr
		}
		return false, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	conf.logger.Info("Connected", "addr", addr, "tls", conf.tlsConfig != nil)
	return newChannel[T](conn, conf)
}

// Listener accepts connections for use with [Accept].
type Listener struct {
	net.Listener
	conf *options
}

// Listen starts listening on addr over TCP, or TLS if the [TLS] option is given.
// The options are applied to every [Channel] created with [Accept].
func Listen(addr string, opts ...Option) (*Listener, error) {
	conf, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	var l net.Listener
	if conf.tlsConfig != nil {
		l, err = tls.Listen("tcp", addr, conf.tlsConfig)
	} else {
		l, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	conf.logger.Info("Listening", "addr", l.Addr().String(), "tls", conf.tlsConfig != nil)
	return &Listener{Listener: l, conf: conf}, nil
}

// Accept waits for the next connection to l and returns a [Channel] over it.
func Accept[T any](l *Listener) (*Channel[T], error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	l.conf.logger.Info("Accepted connection", "remote", conn.RemoteAddr().String())
	return newChannel[T](conn, l.conf)
}
