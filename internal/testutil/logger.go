// Package testutil provides helpers shared by the pipeline package tests.
package testutil

import (
	"log/slog"
	"strings"
	"testing"
)

// NewTestLogger returns a slog logger routed through t.Log, so pipeline logs
// surface only on failure or with -v. Records are emitted at debug level,
// where the merge and download packages log their per-record detail.
func NewTestLogger(t testing.TB) *slog.Logger {
	return NewTestLoggerAt(t, slog.LevelDebug)
}

// NewTestLoggerAt is NewTestLogger with a caller-chosen minimum level, for
// tests that only want the headline info and warn lines.
func NewTestLoggerAt(t testing.TB, level slog.Level) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(logWriter{t}, &slog.HandlerOptions{
		Level: level,
	}))
}

type logWriter struct {
	t testing.TB
}

// Write forwards one handler record to the test log. The text handler
// terminates records with a newline; t.Log adds its own, so it is trimmed.
func (w logWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
