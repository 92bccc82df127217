package slogx

import (
	"context"
	"errors"
	"log/slog"
)

var _ slog.Handler = (*handlerJoiner)(nil)

type handlerJoiner struct {
	handlers []slog.Handler
}

func (h *handlerJoiner) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *handlerJoiner) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		errs = append(errs, handler.Handle(ctx, record.Clone()))
	}
	return errors.Join(errs...)
}

func (h *handlerJoiner) each(fn func(slog.Handler) slog.Handler) slog.Handler {
	joined := &handlerJoiner{handlers: make([]slog.Handler, len(h.handlers))}
	for i, handler := range h.handlers {
		joined.handlers[i] = fn(handler)
	}
	return joined
}

func (h *handlerJoiner) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.each(func(handler slog.Handler) slog.Handler {
		return handler.WithAttrs(attrs)
	})
}

func (h *handlerJoiner) WithGroup(name string) slog.Handler {
	return h.each(func(handler slog.Handler) slog.Handler {
		return handler.WithGroup(name)
	})
}

// MergeHandlers will merge many [slog.Handler] into one, so that each record is sent to all of them.
// Each record only goes to the handlers that are enabled for its level.
func MergeHandlers(a, b slog.Handler, others ...slog.Handler) slog.Handler {
	return &handlerJoiner{handlers: append([]slog.Handler{a, b}, others...)}
}
