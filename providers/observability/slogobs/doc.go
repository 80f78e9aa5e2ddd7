// Package slogobs builds the process logger. It provides a custom
// slog.Handler that renders records in one of three formats: compact
// single-line output with JSON attributes (the default), a multi-line pretty
// layout for debugging, or plain JSON for log aggregation.
//
// The format and level come from AITASKS_LOG_FORMAT / LOG_FORMAT and
// AITASKS_LOG_LEVEL / LOG_LEVEL unless set with [WithFormat] and [WithLevel].
// Logs go to stderr by default so that program output on stdout stays clean.
//
//	logger := slogobs.New()
//	slog.SetDefault(logger)
package slogobs
