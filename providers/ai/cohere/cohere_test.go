package cohere

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *CohereProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	p := New()
	p.WithAPIKey("test-key").WithBaseURL(server.URL).WithHttpClient(server.Client())
	return p
}

func TestSendMessage_Success(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != chatEndpoint {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing bearer token")
		}

		var body chatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.Model != DefaultModel {
			t.Errorf("unexpected model %q", body.Model)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("unexpected messages %+v", body.Messages)
		}
		if body.Temperature == nil || *body.Temperature != 1 {
			t.Errorf("temperature must be clamped to 1, got %v", body.Temperature)
		}

		_, _ = io.WriteString(w, `{"id":"co_1","finish_reason":"COMPLETE",
			"message":{"role":"assistant","content":[{"type":"text","text":"Bonjour"}]},
			"usage":{"tokens":{"input_tokens":4,"output_tokens":2}}}`)
	})

	resp, err := p.SendMessage(context.Background(), ai.ChatRequest{
		SystemPrompt:     "Translate to French.",
		Messages:         []ai.Message{ai.NewUserMessage("Hello")},
		GenerationConfig: &ai.GenerationConfig{Temperature: utils.Ptr(float32(1.5))},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "Bonjour" || resp.FinishReason != "stop" || resp.Usage.TotalTokens != 6 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestSendMessage_ProviderError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"invalid api token"}`)
	})

	_, err := p.SendMessage(context.Background(), ai.ChatRequest{Messages: []ai.Message{ai.NewUserMessage("x")}})
	var pe *ai.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Provider != "cohere" || pe.StatusCode != 401 || pe.Message != "invalid api token" {
		t.Errorf("unexpected error %+v", pe)
	}
}

func TestSendMessage_EmptyContent(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"co_2","message":{"content":[]}}`)
	})

	_, err := p.SendMessage(context.Background(), ai.ChatRequest{Messages: []ai.Message{ai.NewUserMessage("x")}})
	var pe *ai.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}

func TestRequestToCohere_JSONAndImages(t *testing.T) {
	req := requestToCohere("command-r-plus", ai.ChatRequest{
		Messages:       []ai.Message{ai.NewUserMessage("what is this", ai.NewImagePart("image/png", "AAAA"))},
		ResponseFormat: &ai.ResponseFormat{Type: "json_object"},
	})
	if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
		t.Errorf("json mode lost: %+v", req.ResponseFormat)
	}
	items, ok := req.Messages[0].Content.([]contentItem)
	if !ok || len(items) != 2 || items[1].ImageURL.URL != "data:image/png;base64,AAAA" {
		t.Errorf("unexpected content %+v", req.Messages[0].Content)
	}
}
