// Package util provides the relay's logger and traffic statistics.
package util

import (
	"fmt"
	"sync/atomic"

	"github.com/pterm/pterm"
)

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "02 Jan 15:04:05"
	pterm.DefaultLogger.MaxWidth = 1000
}

var verbose atomic.Bool

// Leveled logging functions backed by pterm's default logger.
// All output goes to stderr by default (pterm's default).

func LogDebug(format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(fmt.Sprintf(format, args...))
}

func LogInfo(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogWarning(format string, args ...interface{}) {
	pterm.DefaultLogger.Warn(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...interface{}) {
	pterm.DefaultLogger.Error(fmt.Sprintf(format, args...))
}

// EnableDebug configures the logger to show debug messages, including
// per-packet byte counts.
func EnableDebug() {
	verbose.Store(true)
	pterm.DefaultLogger.Level = pterm.LogLevelDebug
}

// Verbose reports whether debug logging is on. Hot paths check it before
// formatting per-packet messages.
func Verbose() bool {
	return verbose.Load()
}
