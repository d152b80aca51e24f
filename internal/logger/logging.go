// Package logger provides prefixed charmbracelet/log loggers for the resolver, sources and server.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu        sync.RWMutex
	formatter = log.TextFormatter
)

// SetFormatter sets the formatter of loggers created afterwards.
func SetFormatter(f log.Formatter) {
	mu.Lock()
	formatter = f
	mu.Unlock()
}

// Formatter returns the formatter new loggers use.
func Formatter() log.Formatter {
	mu.RLock()
	defer mu.RUnlock()
	return formatter
}

// New creates a prefixed charm log on stderr that follows the global level
// and the package formatter.
// stdout is reserved for the IPC stream.
func New(prefix string) *log.Logger {
	return NewTo(os.Stderr, prefix)
}

// NewTo is New with a custom writer.
func NewTo(w io.Writer, prefix string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: log.GetLevel() <= log.DebugLevel,
		Formatter:       Formatter(),
		Level:           log.GetLevel(),
	})
}

// NewWithConfig creates a new charm log with custom config
func NewWithConfig(prefix string, level log.Level, caller bool, showTimestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: showTimestamp,
		Formatter:       fmt,
	})
}
