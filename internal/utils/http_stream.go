package utils

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// maxSSELineSize bounds a single SSE line. bufio.Scanner's 64 KiB default is
// too small for long completions.
const maxSSELineSize = 1 << 20

// maxErrorBodySize caps how much of a failed stream response is read.
const maxErrorBodySize int64 = 1 << 20

// DoPostStream performs a JSON POST and returns the response with its body
// left open for SSE reading. The caller closes the body. A non-2xx reply is
// read, closed and returned as *HTTPStatusError.
func DoPostStream(ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...HeaderOption) (*http.Response, error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	setHeaders(req, apiKey, headers)

	res, err := httpClient.Do(req)
	if err != nil {
		return res, fmt.Errorf("error sending stream request: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		defer CloseWithLog(res.Body)
		errorBody, readErr := io.ReadAll(io.LimitReader(res.Body, maxErrorBodySize))
		if readErr != nil {
			return res, fmt.Errorf("non-2xx status %d (failed to read body: %v)", res.StatusCode, readErr)
		}
		return res, &HTTPStatusError{StatusCode: res.StatusCode, Body: errorBody}
	}

	return res, nil
}

// CloseWithLog closes c and logs a failure instead of returning it.
func CloseWithLog(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error())
	}
}

// SSEScanner reads Server-Sent Events. It skips comments and fields other
// than data, joins multi-line data fields and treats the OpenAI [DONE]
// sentinel as the end of the stream.
type SSEScanner struct {
	scanner *bufio.Scanner
}

// NewSSEScanner reads events from r. A line longer than 1 MiB makes Next fail
// with an error wrapping bufio.ErrTooLong.
func NewSSEScanner(r io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{scanner: scanner}
}

// Next returns the data payload of the next event, or io.EOF at the end of
// the stream or at [DONE].
func (s *SSEScanner) Next() (string, error) {
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		if data, ok := strings.CutPrefix(line, "data:"); ok {
			data = strings.TrimSpace(data)
			if data == "[DONE]" {
				return "", io.EOF
			}
			dataLines = append(dataLines, data)
		}
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("SSE scanner error: %w", err)
	}
	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}
	return "", io.EOF
}
