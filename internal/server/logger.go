// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// setupLogger configures the global slog logger.
func setupLogger(level, format string) {
	slog.SetDefault(slog.New(newLogHandler(os.Stdout, level, format)))
}

func newLogHandler(w io.Writer, level, format string) slog.Handler {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel = slog.LevelInfo
	}

	if format == "json" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
	}
	return tint.NewHandler(w, &tint.Options{Level: logLevel, NoColor: w != os.Stdout})
}
