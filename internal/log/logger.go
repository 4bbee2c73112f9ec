package log

import (
	"fmt"
	"os"
)

const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
)

var (
	verbose     = false
	disableLogs = false
	forceStderr = false
	levelTags   = map[int]string{
		levelDebug: "\033[37m[DBG]\033[0m", // White
		levelInfo:  "\033[36m[INF]\033[0m", // Cyan
		levelWarn:  "\033[33m[WRN]\033[0m", // Yellow
		levelError: "\033[31m[ERR]\033[0m", // Red
	}
)

// SetVerbose enables or disables debug-level output.
func SetVerbose(v bool) {
	verbose = v
}

// IsVerbose returns true if debug logging is enabled.
func IsVerbose() bool {
	return verbose
}

// DisableLogs silences all output. Used by commands that print
// machine-readable data to stdout.
func DisableLogs() {
	disableLogs = true
}

// IsDisabled returns true if logging is disabled.
func IsDisabled() bool {
	return disableLogs
}

// SetForceStderr routes every level to stderr instead of only errors.
func SetForceStderr(v bool) {
	forceStderr = v
}

// Debugf logs a debug message if verbose is enabled.
func Debugf(format string, args ...interface{}) {
	if verbose {
		write(levelDebug, format, args...)
	}
}

// Infof logs an info message.
func Infof(format string, args ...interface{}) {
	write(levelInfo, format, args...)
}

// Warnf logs a warning message.
func Warnf(format string, args ...interface{}) {
	write(levelWarn, format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) {
	write(levelError, format, args...)
}

// Fatalf logs an error message and exits the program.
func Fatalf(format string, args ...interface{}) {
	write(levelError, format, args...)
	os.Exit(1)
}

func write(level int, format string, args ...interface{}) {
	if disableLogs {
		return
	}

	line := levelTags[level] + " " + fmt.Sprintf(format, args...) + "\n"
	if forceStderr || level == levelError {
		_, _ = os.Stderr.WriteString(line)
	} else {
		_, _ = os.Stdout.WriteString(line)
	}
}
