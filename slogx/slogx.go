// Package slogx provides [slog.Handler] helpers used to set up logging for ringbus and its tools.
package slogx

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format selects the [slog.Handler] created by [New].
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text" or "json", ignoring case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown log format '%s'", s)
	}
}

// ParseLevel accepts the level names understood by [slog.Level.UnmarshalText], such as "debug" or "warn+2".
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return level, fmt.Errorf("unknown log level '%s': %w", s, err)
	}
	return level, nil
}

// Handler creates a deduplicating handler writing to w in the given format.
func Handler(w io.Writer, level slog.Leveler, format Format) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	var impl slog.Handler
	switch format {
	case FormatJSON:
		impl = slog.NewJSONHandler(w, opts)
	default:
		impl = slog.NewTextHandler(w, opts)
	}
	return NewDedupeHandler(impl)
}

// New creates a [slog.Logger] with a [Handler].
func New(w io.Writer, level slog.Leveler, format Format) *slog.Logger {
	return slog.New(Handler(w, level, format))
}

// Discard returns a [slog.Logger] that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
