package main

import (
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/mrsingh-rishi/voice-dialogue"

// newLogger picks the slog handler for format: "text" (default), "json" or
// "otel" for the OpenTelemetry log bridge.
func newLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	case "otel":
		return otelslog.NewLogger(scopeName)
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
}
