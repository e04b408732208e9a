package util

import (
	"fmt"
	"log/slog"
	"strings"
)

// Logging is a clumsy switch that affects what Logf does.
//
// If Logging is true, then Logf writes to Logger at debug level.
var Logging = false

// Logger receives what Logf writes.  Commands replace it after
// reading their log level.
var Logger = slog.Default()

// Logf is a silly utility function that logs if Logging is true.
func Logf(format string, args ...interface{}) {
	if !Logging {
		return
	}
	Logger.Debug(fmt.Sprintf(format, args...))
}

// ParseLevel maps "debug", "info", "warn" and "error" to a slog
// level.  Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
