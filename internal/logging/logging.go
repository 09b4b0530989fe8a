// Package logging sets up the root logger: a leveled, timestamped writer
// that fans out to stderr and the rotated run log file, mirroring the
// stream+file dual-handler root logger the supervisor has always used.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New builds the root logger. debug raises the level so handler
// diagnostics (on_error/on_success output, svn change logs) are visible;
// logFile may be nil, in which case output goes to stderr only.
func New(debug bool, logFile io.Writer) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}

	var w io.Writer = os.Stderr
	if logFile != nil {
		w = io.MultiWriter(os.Stderr, logFile)
	}

	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006/01/02 15:04:05",
		Level:           level,
	})
}
