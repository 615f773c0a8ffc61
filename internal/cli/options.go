// Package cli wires the library into terminal sessions: flag handling, run
// overrides, observability hooks and report rendering.
package cli

import (
	"log/slog"

	"github.com/aretw0/pergola/internal/logging"
)

// RunOptions carries the resolved command-line configuration for one run.
type RunOptions struct {
	// Path to the workflow document.
	Path string

	// OverridesPath optionally points to a YAML file with run overrides.
	OverridesPath string

	// Debug enables verbose logging and per-sample lifecycle logging.
	Debug bool

	// Headless suppresses the banner and styled report output.
	Headless bool
}

// createLogger builds the session logger honoring the debug flag.
func createLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return logging.New(level)
}
