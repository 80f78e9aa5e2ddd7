package slogobs

import (
	"io"
	"log/slog"
	"os"
)

// Option is a functional option for configuring the logger.
type Option func(*config)

type config struct {
	format Format
	level  slog.Level
	output io.Writer
	colors bool
}

// WithFormat sets the log output format.
func WithFormat(format Format) Option {
	return func(c *config) {
		c.format = format
	}
}

// WithLevel sets the minimum log level.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithOutput sets the output writer for logs.
func WithOutput(output io.Writer) Option {
	return func(c *config) {
		c.output = output
	}
}

// WithColors forces ANSI colors on. Compact and pretty formats only.
func WithColors(enabled bool) Option {
	return func(c *config) {
		c.colors = enabled
	}
}

func defaultConfig() *config {
	return &config{
		format: GetFormatFromEnv(),
		level:  GetLogLevelFromEnv(),
		output: os.Stderr,
	}
}

// New builds a logger from the environment defaults and opts.
func New(opts ...Option) *slog.Logger {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return slog.New(NewHandler(&HandlerOptions{
		Format: cfg.format,
		Level:  cfg.level,
		Output: cfg.output,
		Colors: cfg.colors,
	}))
}
