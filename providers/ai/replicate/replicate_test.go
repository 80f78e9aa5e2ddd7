package replicate

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

func newTestProvider(t *testing.T, handler http.HandlerFunc) *ReplicateProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New().WithAPIKey("r8_test").WithBaseURL(server.URL).WithHttpClient(server.Client())
}

// TestGenerateImage_FluxInput verifies the flux-schnell input mapping and
// the synchronous wait header.
func TestGenerateImage_FluxInput(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/black-forest-labs/flux-schnell/predictions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Prefer") != "wait=60" {
			t.Errorf("unexpected Prefer header %q", r.Header.Get("Prefer"))
		}
		if r.Header.Get("Authorization") != "Bearer r8_test" {
			t.Error("missing bearer token")
		}

		var body struct {
			Input map[string]any `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		want := map[string]any{
			"prompt":              "a girl in the forest",
			"negative_prompt":     "trash",
			"aspect_ratio":        "16:9",
			"num_outputs":         float64(2),
			"output_format":       "png",
			"output_quality":      float64(80),
			"num_inference_steps": float64(4),
			"seed":                float64(7),
		}
		for k, v := range want {
			if body.Input[k] != v {
				t.Errorf("input[%s] = %v, want %v", k, body.Input[k], v)
			}
		}

		_, _ = io.WriteString(w, `{"id":"p1","status":"succeeded","output":["https://replicate.delivery/a.png","https://replicate.delivery/b.png"]}`)
	})

	resp, err := p.GenerateImage(context.Background(), ai.ImageRequest{
		Prompt:         "a girl in the forest",
		NegativePrompt: "trash",
		AspectRatio:    "16:9",
		N:              2,
		OutputFormat:   "png",
		Quality:        80,
		Steps:          4,
		Seed:           utils.Ptr(7),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Images) != 2 || resp.Images[1].URL != "https://replicate.delivery/b.png" || resp.Images[0].MimeType != "image/png" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestGenerateImage_SingleOutputString(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"p2","status":"succeeded","output":"https://replicate.delivery/only.webp"}`)
	})

	resp, err := p.GenerateImage(context.Background(), ai.ImageRequest{Prompt: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if urls := resp.URLs(); len(urls) != 1 || urls[0] != "https://replicate.delivery/only.webp" {
		t.Errorf("unexpected urls %v", urls)
	}
}

func TestGenerateImage_NotFinished(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"p3","status":"processing","output":null}`)
	})

	_, err := p.GenerateImage(context.Background(), ai.ImageRequest{Prompt: "x"})
	var pe *ai.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}

func TestGenerateImage_Failed(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"p4","status":"failed","error":"NSFW content detected"}`)
	})

	_, err := p.GenerateImage(context.Background(), ai.ImageRequest{Prompt: "x"})
	var pe *ai.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}

func TestGenerateImage_HTTPError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":"aspect_ratio must be one of the allowed values"}`)
	})

	_, err := p.GenerateImage(context.Background(), ai.ImageRequest{Prompt: "x"})
	var pe *ai.ProviderError
	if !errors.As(err, &pe) || pe.StatusCode != 422 || pe.Message != "aspect_ratio must be one of the allowed values" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestGenerateImage_Validation(t *testing.T) {
	p := New().WithAPIKey("")
	if _, err := p.GenerateImage(context.Background(), ai.ImageRequest{Prompt: "x"}); !ai.IsValidationError(err) {
		t.Errorf("missing key must be a ValidationError, got %v", err)
	}

	p.WithAPIKey("k")
	if _, err := p.GenerateImage(context.Background(), ai.ImageRequest{Prompt: "x", Model: "no-slash"}); !ai.IsValidationError(err) {
		t.Errorf("bad model id must be a ValidationError, got %v", err)
	}
}
