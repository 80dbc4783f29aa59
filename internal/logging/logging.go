// Package logging configures the process-wide slog setup.
package logging

import (
	"log/slog"
	"os"
)

// Setup installs a text handler on stderr at the given level and returns the
// root logger. Components receive child loggers via With rather than reaching
// for a package-level logger.
func Setup(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
