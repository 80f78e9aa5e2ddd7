package factory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leofalp/aitasks/core/artifact"
	"github.com/leofalp/aitasks/core/fanout"
	"github.com/leofalp/aitasks/internal/config"
	"github.com/leofalp/aitasks/providers/ai"
)

func testConfig(baseURL string) config.Config {
	providers := map[string]config.ProviderSettings{}
	for _, name := range []string{config.OpenAI, config.Anthropic, config.Cohere, config.Gemini} {
		providers[name] = config.ProviderSettings{Name: name, APIKey: "key-" + name, BaseURL: baseURL}
	}
	return config.Config{Timeout: 5 * time.Second, OutputDir: ".", Providers: providers}
}

func TestClient_AppliesSettings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key-openai" {
			t.Errorf("configured key not applied: %q", r.Header.Get("Authorization"))
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "gpt-4o" || body["temperature"] != 0.0 {
			t.Errorf("unexpected body %v", body)
		}
		_, _ = io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	zero := float32(0)
	s := cfg.Providers[config.OpenAI]
	s.Model = "gpt-4o"
	s.Temperature = &zero
	cfg.Providers[config.OpenAI] = s

	f := New(cfg, slog.New(slog.DiscardHandler))
	c, err := f.Client(config.OpenAI)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.SendMessage(context.Background(), "hi")
	if err != nil || resp.Content != "ok" {
		t.Fatalf("got %+v, %v", resp, err)
	}
}

func TestChatProvider_Unknown(t *testing.T) {
	f := New(testConfig(""), nil)
	if _, err := f.ChatProvider("mistral"); !ai.IsValidationError(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

// TestTargets_FanOut wires the default roster against one fake server that
// fails only the Anthropic request.
func TestTargets_FanOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat/completions":
			_, _ = io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"openai"},"finish_reason":"stop"}]}`)
		case "/v2/chat":
			_, _ = io.WriteString(w, `{"finish_reason":"COMPLETE","message":{"content":[{"type":"text","text":"cohere"}]}}`)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
		}
	}))
	defer server.Close()

	f := New(testConfig(server.URL), nil)
	targets, err := f.Targets(config.DefaultRoster())
	if err != nil {
		t.Fatal(err)
	}

	slots, err := fanout.Run(context.Background(), "hello", targets)
	if err != nil {
		t.Fatal(err)
	}
	if !slots[0].OK() || slots[0].Response.Content != "openai" {
		t.Errorf("unexpected slot %+v", slots[0])
	}
	var pe *ai.ProviderError
	if !errors.As(slots[1].Err, &pe) || pe.Provider != "anthropic" || pe.Message != "Overloaded" {
		t.Errorf("unexpected anthropic slot %+v", slots[1])
	}
	if !slots[2].OK() || slots[2].Response.Content != "cohere" {
		t.Errorf("unexpected slot %+v", slots[2])
	}
}

func TestTargets_MissingKey(t *testing.T) {
	cfg := testConfig("")
	delete(cfg.Providers, config.Cohere)

	_, err := New(cfg, nil).Targets(config.DefaultRoster())
	if !errors.Is(err, config.ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestSink_DefaultsToFiles(t *testing.T) {
	cfg := testConfig("")
	cfg.OutputDir = t.TempDir()

	sink, err := New(cfg, nil).Sink(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sink.(*artifact.FileSink); !ok {
		t.Errorf("expected a FileSink, got %T", sink)
	}
}
