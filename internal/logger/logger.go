// Package logger writes corpagent diagnostics to stderr.
//
// Debug and Info are only printed in verbose mode. Warnings and errors are
// always printed: a failed retrieval or model call never aborts a review,
// so the warning is the only trace the user gets.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether verbose mode is enabled
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects all log output. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug prints a message in verbose mode
func Debug(format string, args ...any) {
	logf(true, "[DEBUG] ", format, args...)
}

// Info prints a message in verbose mode
func Info(format string, args ...any) {
	logf(true, "[INFO] ", format, args...)
}

// Warn always prints a warning
func Warn(format string, args ...any) {
	logf(false, "Warning: ", format, args...)
}

// Error always prints an error
func Error(format string, args ...any) {
	logf(false, "Error: ", format, args...)
}

func logf(verboseOnly bool, prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verboseOnly && !verbose {
		return
	}
	_, _ = fmt.Fprintf(output, prefix+format+"\n", args...)
}
