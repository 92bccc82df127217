package slogx

import (
	"github.com/stretchr/testify/assert"
	"log/slog"
	"strings"
	"testing"
)

func TestMergeHandlers(t *testing.T) {
	var (
		bufA, bufB, bufC strings.Builder
	)
	log := slog.New(MergeHandlers(
		slog.NewTextHandler(&bufA, &slog.HandlerOptions{}),
		slog.NewTextHandler(&bufB, &slog.HandlerOptions{}),
		slog.NewTextHandler(&bufC, &slog.HandlerOptions{}),
	))
	log.Info("A message", "test", "test")
	a, b, c := bufA.String(), bufB.String(), bufC.String()
	assert.NotEmpty(t, a)
	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
}

func TestMergeHandlers_Levels(t *testing.T) {
	var debug, warn strings.Builder
	log := slog.New(MergeHandlers(
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	))
	derived := log.With("derived", true)
	derived.Debug("Quiet")
	assert.Contains(t, debug.String(), "derived=true")
	assert.Empty(t, warn.String())

	log.Warn("Loud")
	assert.Contains(t, warn.String(), "Loud")
	assert.NotContains(t, warn.String(), "derived", "Deriving a logger must not change the original")
}
