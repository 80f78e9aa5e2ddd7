package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type valueResponse struct {
	Value int `json:"value"`
}

// TestDoPostSync_Success verifies that a 200 response with valid JSON is
// unmarshaled into the output struct and that auth and extra headers are sent.
func TestDoPostSync_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		if got := r.Header.Get("X-Extra"); got != "yes" {
			t.Errorf("unexpected X-Extra header %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected Content-Type %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"value":42}`)
	}))
	defer server.Close()

	_, result, err := DoPostSync[valueResponse](
		context.Background(),
		server.Client(),
		server.URL,
		"test-key",
		map[string]string{"q": "test"},
		HeaderOption{Key: "X-Extra", Value: "yes"},
	)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result == nil || result.Value != 42 {
		t.Fatalf("expected Value=42, got %+v", result)
	}
}

// TestDoPostSync_Non2xxStatus verifies that a non-2xx HTTP status is returned
// as *HTTPStatusError carrying the status code and body.
func TestDoPostSync_Non2xxStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad request"}}`)
	}))
	defer server.Close()

	_, _, err := DoPostSync[valueResponse](context.Background(), server.Client(), server.URL, "", map[string]string{})
	if err == nil {
		t.Fatal("expected error for 400 response, got nil")
	}

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *HTTPStatusError, got %T", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", statusErr.StatusCode)
	}
	if !strings.Contains(string(statusErr.Body), "bad request") {
		t.Errorf("body not preserved: %s", statusErr.Body)
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("expected error to contain status code 400, got: %v", err)
	}
}

// TestDoPostSync_UnmarshalError verifies that a 200 response with a body that
// cannot be unmarshaled returns an error mentioning "unmarshal".
func TestDoPostSync_UnmarshalError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer server.Close()

	_, _, err := DoPostSync[valueResponse](context.Background(), server.Client(), server.URL, "", nil)
	if err == nil || !strings.Contains(err.Error(), "unmarshal") {
		t.Fatalf("expected unmarshal error, got %v", err)
	}
}

// TestDoPostSync_ContextCanceled verifies that a canceled context surfaces
// as a wrapped context error.
func TestDoPostSync_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":1}`)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := DoPostSync[valueResponse](ctx, server.Client(), server.URL, "", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// TestDoPostRaw_ReturnsBytes verifies binary replies come back untouched.
func TestDoPostRaw_ReturnsBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte{0xFF, 0xFB, 0x90})
	}))
	defer server.Close()

	res, body, err := DoPostRaw(context.Background(), server.Client(), server.URL, "k", map[string]string{"input": "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Header.Get("Content-Type") != "audio/mpeg" {
		t.Errorf("unexpected content type %q", res.Header.Get("Content-Type"))
	}
	if len(body) != 3 || body[0] != 0xFF {
		t.Errorf("unexpected body %v", body)
	}
}

// TestDoPostMultipart_SendsFieldsAndFile verifies the multipart body layout.
func TestDoPostMultipart_SendsFieldsAndFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model field = %q", got)
		}
		if _, ok := r.MultipartForm.Value["language"]; ok {
			t.Error("empty fields must be omitted")
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if header.Filename != "audio.wav" || string(data) != "RIFF" {
			t.Errorf("unexpected file %q %q", header.Filename, data)
		}
		fmt.Fprint(w, `{"value":7}`)
	}))
	defer server.Close()

	_, out, err := DoPostMultipart[valueResponse](
		context.Background(),
		server.Client(),
		server.URL,
		"key",
		map[string]string{"model": "whisper-1", "language": ""},
		MultipartFile{Field: "file", FileName: "audio.wav", ContentType: "audio/wav", Data: []byte("RIFF")},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Value != 7 {
		t.Errorf("expected 7, got %d", out.Value)
	}
}

// TestDoGet_Non2xx verifies GET shares the status error contract.
func TestDoGet_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, _, err := DoGet(context.Background(), server.Client(), server.URL)
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	got := TruncateString("abcdefghij", 4)
	if !strings.HasPrefix(got, "abcd...") || !strings.Contains(got, "total: 10") {
		t.Errorf("got %q", got)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "  ", "x", "y"); got != "x" {
		t.Errorf("got %q", got)
	}
	if got := FirstNonEmpty(); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestMergeExtraParams(t *testing.T) {
	body := struct {
		Model string `json:"model"`
		N     int    `json:"n,omitempty"`
	}{Model: "gpt-4o-mini"}

	same, err := MergeExtraParams(body, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := same.(map[string]any); ok {
		t.Error("without extra params the body must be returned unchanged")
	}

	merged, err := MergeExtraParams(body, map[string]any{"seed": 7, "model": "override"})
	if err != nil {
		t.Fatal(err)
	}
	m := merged.(map[string]any)
	if m["seed"] != 7 || m["model"] != "override" {
		t.Errorf("unexpected merge result: %v", m)
	}
	if _, ok := m["n"]; ok {
		t.Error("omitempty fields must stay omitted")
	}
}
