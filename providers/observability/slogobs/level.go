package slogobs

import (
	"log/slog"
	"os"
	"strings"
)

// GetLogLevelFromEnv reads AITASKS_LOG_LEVEL, then LOG_LEVEL. The default is WARN:
// the programs are interactive and only surface problems unless asked.
func GetLogLevelFromEnv() slog.Level {
	level := os.Getenv("AITASKS_LOG_LEVEL")
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		return slog.LevelWarn
	}
	parsed, _ := ParseLogLevel(level)
	return parsed
}

// ParseLogLevel parses DEBUG, INFO, WARN, WARNING or ERROR (case-insensitive).
// Unknown values give INFO and ok=false.
func ParseLogLevel(level string) (parsed slog.Level, ok bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
