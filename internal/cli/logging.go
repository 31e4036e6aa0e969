package cli

import (
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/charmbracelet/log"
)

// NewLogger builds the process logger: warnings by default, debug with
// verbose, nothing with quiet.
func NewLogger(w io.Writer, verbose, quiet bool) *slog.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	if quiet {
		level = math.MaxInt32
	}

	logger := log.NewWithOptions(w, log.Options{
		TimeFormat:      time.Kitchen,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "clipstash",
	})
	return slog.New(logger)
}
