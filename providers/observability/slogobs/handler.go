package slogobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler is a slog.Handler that supports the compact, pretty and JSON formats.
// Attributes keep the order in which they were added.
type Handler struct {
	format Format
	level  slog.Level
	output io.Writer
	colors bool
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	// Format specifies the output format (compact, pretty, json).
	Format Format
	// Level is the minimum log level to output.
	Level slog.Level
	// Output is where logs are written (defaults to os.Stderr).
	Output io.Writer
	// Colors enables ANSI color codes (only for compact/pretty formats).
	Colors bool
}

// NewHandler creates a new Handler with the given options.
func NewHandler(opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}
	format := opts.Format
	if format == "" {
		format = FormatCompact
	}

	colors := opts.Colors
	if !colors && format != FormatJSON {
		if f, ok := output.(*os.File); ok {
			colors = isTerminal(f)
		}
	}

	return &Handler{
		format: format,
		level:  opts.Level,
		output: output,
		colors: colors,
		mu:     &sync.Mutex{},
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle formats and writes a log record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var buf []byte
	switch h.format {
	case FormatPretty:
		buf = h.formatPretty(r)
	case FormatJSON:
		var err error
		if buf, err = h.formatJSON(r); err != nil {
			return err
		}
	default:
		buf = h.formatCompact(r)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.output.Write(buf)
	return err
}

// WithAttrs returns a new Handler with additional attributes.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: h.prefix(a.Key), Value: a.Value})
	}
	return &clone
}

// WithGroup returns a new Handler with a group name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func (h *Handler) prefix(key string) string {
	if len(h.groups) == 0 {
		return key
	}
	return strings.Join(h.groups, ".") + "." + key
}

type kv struct {
	key   string
	value any
}

// collectAttrs merges handler and record attributes, resolving LogValuers
// and prefixing record keys with the open groups.
func (h *Handler) collectAttrs(r slog.Record) []kv {
	out := make([]kv, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		out = append(out, kv{a.Key, attrValue(a.Value)})
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Equal(slog.Attr{}) {
			return true
		}
		out = append(out, kv{h.prefix(a.Key), attrValue(a.Value)})
		return true
	})
	return out
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format("2006-01-02T15:04:05")
	case slog.KindGroup:
		m := map[string]any{}
		for _, a := range v.Group() {
			m[a.Key] = attrValue(a.Value)
		}
		return m
	default:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	}
}

// formatCompact renders "2006-01-02 15:04:05  INFO Message → {"key":"value"}".
func (h *Handler) formatCompact(r slog.Record) []byte {
	var buf bytes.Buffer
	buf.WriteString(r.Time.Format("2006-01-02 15:04:05"))
	buf.WriteByte(' ')
	h.writeLevel(&buf, r.Level, fmt.Sprintf("%5s", levelString(r.Level)))
	buf.WriteByte(' ')
	buf.WriteString(r.Message)

	if attrs := h.collectAttrs(r); len(attrs) > 0 {
		buf.WriteString(" → {")
		for i, a := range attrs {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(a.key)
			buf.Write(key)
			buf.WriteByte(':')
			value, err := json.Marshal(a.value)
			if err != nil {
				value, _ = json.Marshal(fmt.Sprintf("%v", a.value))
			}
			buf.Write(value)
		}
		buf.WriteByte('}')
	}

	buf.WriteByte('\n')
	return buf.Bytes()
}

// formatPretty renders the message on one line and each attribute below it
// with tree-style indentation.
func (h *Handler) formatPretty(r slog.Record) []byte {
	var buf bytes.Buffer
	buf.WriteString(r.Time.Format("2006-01-02 15:04:05"))
	buf.WriteByte(' ')
	level := levelString(r.Level)
	h.writeLevel(&buf, r.Level, level)
	buf.WriteString(strings.Repeat(" ", 7-len(level)))
	buf.WriteString(r.Message)
	buf.WriteByte('\n')

	attrs := h.collectAttrs(r)
	for i, a := range attrs {
		if i == len(attrs)-1 {
			buf.WriteString("                    └─ ")
		} else {
			buf.WriteString("                    ├─ ")
		}
		fmt.Fprintf(&buf, "%s: %v\n", a.key, a.value)
	}
	return buf.Bytes()
}

// formatJSON renders a single JSON object with time, level, msg and the
// attributes merged at the top level.
func (h *Handler) formatJSON(r slog.Record) ([]byte, error) {
	data := map[string]any{
		"time":  r.Time.Format("2006-01-02T15:04:05"),
		"level": levelString(r.Level),
		"msg":   r.Message,
	}
	for _, a := range h.collectAttrs(r) {
		data[a.key] = a.value
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(jsonData, '\n'), nil
}

func (h *Handler) writeLevel(buf *bytes.Buffer, level slog.Level, text string) {
	if h.colors {
		buf.WriteString(colorForLevel(level))
		buf.WriteString(text)
		buf.WriteString(colorReset)
		return
	}
	buf.WriteString(text)
}

// levelString maps TRACE (below Debug), DEBUG, INFO, WARN and ERROR.
func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return "TRACE"
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

func colorForLevel(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return colorGray
	case level < slog.LevelInfo:
		return colorBlue
	case level < slog.LevelWarn:
		return colorGreen
	case level < slog.LevelError:
		return colorYellow
	default:
		return colorRed
	}
}

// isTerminal checks whether the given file is connected to a terminal device.
func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
