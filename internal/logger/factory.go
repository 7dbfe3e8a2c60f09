package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Discard returns a logger that drops everything, for tests and the terminal UI.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// SetupGlobal configures the package-level charm logger: debug with timestamps
// when debug is set, warnings only otherwise.
func SetupGlobal(debug bool) {
	log.SetOutput(os.Stderr)
	if debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
		return
	}
	log.SetLevel(log.WarnLevel)
	log.SetReportTimestamp(false)
}

// ToFile sends the global logger to path, so a full screen UI is not drawn over.
// Close the returned file when done.
func ToFile(path string) (io.WriteCloser, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	return f, nil
}
