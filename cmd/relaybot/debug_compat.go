//go:build !go1.22

package main

import (
	"log/slog"
	"os"
)

// enableDebugLogging lowers the default slog logger level to Debug.
// slog.SetLogLoggerLevel is unavailable before Go 1.22, so install a
// debug-level handler as the default logger instead.
func enableDebugLogging() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
}
