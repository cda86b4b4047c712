//go:build go1.22

package main

import "log/slog"

// enableDebugLogging lowers the default slog logger level to Debug.
func enableDebugLogging() {
	slog.SetLogLoggerLevel(slog.LevelDebug)
}
