package slogx

import (
	"context"
	"log/slog"
	"maps"
	"slices"
)

var _ slog.Handler = (*DedupeHandler)(nil)

// DedupeHandler keeps only the latest value of each attribute key, so that loggers derived many times with [slog.Logger.With] don't repeat keys.
// Groups are flattened into dotted key prefixes.
type DedupeHandler struct {
	group string
	index map[string]int
	attrs []slog.Attr
	impl  slog.Handler
}

func NewDedupeHandler(impl slog.Handler) slog.Handler {
	if impl == nil {
		panic("nil implementing handler")
	}
	return &DedupeHandler{
		index: map[string]int{},
		impl:  impl,
	}
}

func (h *DedupeHandler) key(name string) string {
	if len(h.group) == 0 {
		return name
	}
	return h.group + "." + name
}

func (h *DedupeHandler) clone() *DedupeHandler {
	return &DedupeHandler{
		group: h.group,
		index: maps.Clone(h.index),
		attrs: slices.Clone(h.attrs),
		impl:  h.impl,
	}
}

func (h *DedupeHandler) set(attr slog.Attr) {
	attr.Key = h.key(attr.Key)
	if i, ok := h.index[attr.Key]; ok {
		h.attrs[i] = attr
		return
	}
	h.index[attr.Key] = len(h.attrs)
	h.attrs = append(h.attrs, attr)
}

func (h *DedupeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.impl.Enabled(ctx, level)
}

func (h *DedupeHandler) Handle(ctx context.Context, record slog.Record) error {
	attrs := h.attrs
	if record.NumAttrs() > 0 {
		merged := h.clone()
		record.Attrs(func(attr slog.Attr) bool {
			merged.set(attr)
			return true
		})
		attrs = merged.attrs
		record = slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	}
	record.AddAttrs(attrs...)
	return h.impl.Handle(ctx, record)
}

func (h *DedupeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	cp := h.clone()
	for _, attr := range attrs {
		cp.set(attr)
	}
	return cp
}

func (h *DedupeHandler) WithGroup(name string) slog.Handler {
	if len(name) == 0 {
		return h
	}
	cp := h.clone()
	cp.group = cp.key(name)
	return cp
}
