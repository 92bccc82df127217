// Package httpx provides the HTTP plumbing used to expose a bus, such as metrics and websocket endpoints.
package httpx

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// DefaultShutdownTimeout is how long [ServeCtx] waits for in-flight requests on shutdown, unless overridden.
var DefaultShutdownTimeout = 5 * time.Second

// ListenAndServeCtx will listen on [http.Server.Addr] and call [ServeCtx].
func ListenAndServeCtx(ctx context.Context, srv *http.Server, shutdownTimeout ...time.Duration) error {
	addr := srv.Addr
	if len(addr) == 0 {
		addr = ":http"
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ServeCtx(ctx, srv, l, shutdownTimeout...)
}

// ServeCtx will call [http.Server.Serve] and respond to context cancellation by shutting down the server.
// An optional shutdownTimeout may be passed to override [DefaultShutdownTimeout].
func ServeCtx(ctx context.Context, srv *http.Server, l net.Listener, shutdownTimeout ...time.Duration) error {
	srvErrs := make(chan error, 1)
	go func() {
		defer close(srvErrs)
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErrs <- err
		}
	}()

	select {
	case err := <-srvErrs:
		return err
	case <-ctx.Done():
		timeout := DefaultShutdownTimeout
		if len(shutdownTimeout) > 0 {
			timeout = shutdownTimeout[0]
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
