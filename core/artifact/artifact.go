package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an artifact does not exist or has expired.
var ErrNotFound = errors.New("artifact not found")

// Sink stores named artifacts and returns where each one ended up: a file
// path, an s3:// URI or an in-memory id.
type Sink interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// UniqueName returns prefix-<uuid>.ext. The extension may be given with or
// without its dot and may be empty.
func UniqueName(prefix, ext string) string {
	name := uuid.NewString()
	if prefix != "" {
		name = prefix + "-" + name
	}
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		name += "." + ext
	}
	return name
}

// MarshalJSON encodes v with two-space indentation, leaving non-ASCII and
// HTML characters unescaped, and a trailing newline.
func MarshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteJSON stores v as name in sink.
func WriteJSON(ctx context.Context, sink Sink, name string, v any) (string, error) {
	data, err := MarshalJSON(v)
	if err != nil {
		return "", err
	}
	return sink.Put(ctx, name, data, "application/json")
}

// ReadJSON decodes the JSON file at path into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// WriteText stores text as a UTF-8 plain text artifact.
func WriteText(ctx context.Context, sink Sink, name, text string) (string, error) {
	return sink.Put(ctx, name, []byte(text), "text/plain; charset=utf-8")
}

// ExtensionFor returns the file extension (without dot) for a MIME type,
// e.g. "png" for "image/png". Unknown types yield "bin".
func ExtensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	switch mediaType {
	case "image/jpeg":
		return "jpg"
	case "audio/mpeg":
		return "mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	case "text/plain":
		return "txt"
	}
	if _, sub, ok := strings.Cut(mediaType, "/"); ok && sub != "" && !strings.ContainsAny(sub, "+.-") {
		return sub
	}
	return "bin"
}

// ContentTypeFor guesses the MIME type from a file name's extension.
func ContentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
