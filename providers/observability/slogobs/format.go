package slogobs

import (
	"os"
	"strings"
)

// Format represents the output format for logs.
type Format string

const (
	// FormatCompact is a single-line format with JSON attributes.
	// Example: 2025-11-03 10:40:35  INFO llm send → {"model":"gpt-4o"}
	FormatCompact Format = "compact"

	// FormatPretty is a multi-line format with one attribute per line.
	FormatPretty Format = "pretty"

	// FormatJSON is standard JSON format.
	// Example: {"time":"2025-11-03T10:40:35","level":"INFO","msg":"llm send","model":"gpt-4o"}
	FormatJSON Format = "json"
)

// ParseFormat parses a format string; unknown values give FormatCompact.
func ParseFormat(s string) Format {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "pretty":
		return FormatPretty
	case "json":
		return FormatJSON
	default:
		return FormatCompact
	}
}

// GetFormatFromEnv reads AITASKS_LOG_FORMAT, then LOG_FORMAT.
func GetFormatFromEnv() Format {
	if format := os.Getenv("AITASKS_LOG_FORMAT"); format != "" {
		return ParseFormat(format)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		return ParseFormat(format)
	}
	return FormatCompact
}

// String returns the string representation of the Format.
func (f Format) String() string {
	return string(f)
}
