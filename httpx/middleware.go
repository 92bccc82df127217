package httpx

import (
	"bufio"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Middleware is a function that wraps another [http.Handler] to inject logic before or after the handler is run.
type Middleware func(next http.Handler) http.Handler

// Wrap will wrap the given [http.Handler], such that all given [Middleware] will be executed in the order provided.
// This can be used as a shorthand for applying many middleware layers while avoiding telescoping.
//
// If no middleware are provided, then the handler will be returned unchanged.
func Wrap(next http.Handler, middlewares ...Middleware) http.Handler {
	if next == nil {
		panic("nil handler")
	}
	// Wrapped in reverse order, so they're executed in parameter order.
	for i := len(middlewares) - 1; i >= 0; i-- {
		next = middlewares[i](next)
	}
	return next
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Unwrap lets [http.ResponseController] reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack is needed to upgrade a logged request to a websocket.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	w.statusCode = http.StatusSwitchingProtocols
	return http.NewResponseController(w.ResponseWriter).Hijack()
}

// Logging logs each request at Debug, including status code, method, path, and duration.
func Logging(log *slog.Logger) Middleware {
	if log == nil {
		panic("nil logger")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			defer func() {
				log.Debug("Request handled",
					"status", sw.statusCode,
					"method", r.Method,
					"path", r.URL.Path,
					"duration", time.Since(start),
				)
			}()
			next.ServeHTTP(sw, r)
		})
	}
}

// Recovery logs a panicking handler at Error and responds with 500 Internal Server Error, instead of dropping the connection.
func Recovery(log *slog.Logger) Middleware {
	if log == nil {
		panic("nil logger")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					log.Error("Handler panicked", "path", r.URL.Path, "panic", v)
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
