package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// HeaderOption is an extra request header, e.g. {"x-api-key", key}.
type HeaderOption struct {
	Key   string
	Value string
}

// HTTPStatusError is returned when the remote side answers with a non-2xx status.
// Body holds the raw response so callers can extract the provider message.
type HTTPStatusError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", e.StatusCode, TruncateString(string(e.Body), DefaultMaxStringLength))
}

// MultipartFile is the file field of a multipart/form-data upload.
type MultipartFile struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

// DoPostSync performs a synchronous HTTP POST request with JSON body and parses the response.
//
// Error Handling Strategy:
//   - Context errors (timeout, cancellation) are propagated wrapped
//   - non-2xx status returns *HTTPStatusError carrying the body
//   - Response body close errors are logged but don't override primary errors
//   - JSON parsing errors include response preview for debugging
func DoPostSync[OutputStruct any](ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...HeaderOption) (*http.Response, *OutputStruct, error) {
	res, respBody, err := DoPostRaw(ctx, client, url, apiKey, body, headers...)
	if err != nil {
		return res, nil, err
	}
	return decode[OutputStruct](res, respBody)
}

// DoPostRaw is DoPostSync without response decoding. Used for binary replies
// such as synthesized audio.
func DoPostRaw(ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...HeaderOption) (*http.Response, []byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("error marshaling body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setHeaders(req, apiKey, headers)

	return do(client, req)
}

// DoPostMultipart uploads form fields and one file as multipart/form-data and
// decodes the JSON reply.
func DoPostMultipart[OutputStruct any](ctx context.Context, client *http.Client, url string, apiKey string, fields map[string]string, file MultipartFile, headers ...HeaderOption) (*http.Response, *OutputStruct, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return nil, nil, fmt.Errorf("error writing field %s: %w", key, err)
		}
	}

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.FileName))
	if file.ContentType != "" {
		partHeader.Set("Content-Type", file.ContentType)
	} else {
		partHeader.Set("Content-Type", "application/octet-stream")
	}
	part, err := writer.CreatePart(partHeader)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating file part: %w", err)
	}
	if _, err = part.Write(file.Data); err != nil {
		return nil, nil, fmt.Errorf("error writing file part: %w", err)
	}
	if err = writer.Close(); err != nil {
		return nil, nil, fmt.Errorf("error closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	setHeaders(req, apiKey, headers)

	res, respBody, err := do(client, req)
	if err != nil {
		return res, nil, err
	}
	return decode[OutputStruct](res, respBody)
}

// DoGet performs a GET request and returns the raw body of a 2xx response.
func DoGet(ctx context.Context, client *http.Client, url string, headers ...HeaderOption) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}
	setHeaders(req, "", headers)
	return do(client, req)
}

func setHeaders(req *http.Request, apiKey string, headers []HeaderOption) {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for _, h := range headers {
		req.Header.Set(h.Key, h.Value)
	}
}

func do(client *http.Client, req *http.Request) (*http.Response, []byte, error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	res, err := httpClient.Do(req)
	if err != nil {
		return res, nil, fmt.Errorf("error sending request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if closeErr := Body.Close(); closeErr != nil {
			slog.Warn("failed to close response body", "error", closeErr.Error(), "url", req.URL.String())
		}
	}(res.Body)

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return res, nil, fmt.Errorf("error reading response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res, respBody, &HTTPStatusError{StatusCode: res.StatusCode, Body: respBody}
	}

	return res, respBody, nil
}

func decode[OutputStruct any](res *http.Response, respBody []byte) (*http.Response, *OutputStruct, error) {
	var resStruct OutputStruct
	if err := json.Unmarshal(respBody, &resStruct); err != nil {
		return res, nil, fmt.Errorf("error unmarshaling response body (status %d): %w\nResponse preview: %s", res.StatusCode, err, TruncateString(string(respBody), 500))
	}
	return res, &resStruct, nil
}
