package img2img

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/leofalp/aitasks/core/chain"
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/tasks/taskstest"
	"github.com/leofalp/aitasks/providers/ai"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR fake image data")

type fakeOpenAI struct {
	description string
	imageStatus int

	chats, images atomic.Int32
	chatBody      map[string]any
	imageBody     map[string]any
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/chat/completions":
		f.chats.Add(1)
		_ = json.NewDecoder(r.Body).Decode(&f.chatBody)
		_, _ = io.WriteString(w, taskstest.ChatReply(f.description))
	case "/images/generations":
		f.images.Add(1)
		_ = json.NewDecoder(r.Body).Decode(&f.imageBody)
		if f.imageStatus != 0 {
			w.WriteHeader(f.imageStatus)
			_, _ = io.WriteString(w, `{"error":{"message":"Your request was rejected by the safety system."}}`)
			return
		}
		_, _ = fmt.Fprintf(w, `{"created":1,"data":[{"url":"http://%s/generated.png"}]}`, r.Host)
	case "/generated.png":
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	default:
		http.NotFound(w, r)
	}
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(path, pngBytes, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_DescribeAndGenerate(t *testing.T) {
	fake := &fakeOpenAI{description: "A red bicycle against a brick wall."}
	h := taskstest.New(t, fake, "'"+writeImage(t)+"'\n")

	if code := cli.Execute(context.Background(), Command(), h.Env, []string{"-save"}); code != cli.ExitOK {
		t.Fatalf("exit code %d: %s", code, h.Stderr)
	}

	if fake.chatBody["max_tokens"] != float64(300) {
		t.Errorf("unexpected max_tokens %v", fake.chatBody["max_tokens"])
	}
	raw, _ := json.Marshal(fake.chatBody["messages"])
	if !strings.Contains(string(raw), "What’s in this image?") || !strings.Contains(string(raw), "data:image/png;base64,") {
		t.Errorf("unexpected vision messages %s", raw)
	}
	if fake.imageBody["model"] != "dall-e-3" || fake.imageBody["size"] != "1024x1024" || fake.imageBody["n"] != float64(1) ||
		fake.imageBody["prompt"] != "A red bicycle against a brick wall." {
		t.Errorf("unexpected image request %v", fake.imageBody)
	}

	out := h.Stdout.String()
	if !strings.Contains(out, "Description: A red bicycle against a brick wall.\n") ||
		!strings.Contains(out, "Generated image based on the description: http://") {
		t.Errorf("unexpected output %q", out)
	}
	saved, _ := filepath.Glob(filepath.Join(h.Env.Config.OutputDir, "generated-*.png"))
	if len(saved) != 1 {
		t.Errorf("expected one saved image, got %v", saved)
	}
}

func TestRun_EmptyDescriptionStopsChain(t *testing.T) {
	fake := &fakeOpenAI{description: "   "}
	h := taskstest.New(t, fake, "")

	state := &State{Path: writeImage(t)}
	pipeline, err := NewChain(h.Env, "dall-e-3", false)
	if err != nil {
		t.Fatal(err)
	}
	err = pipeline.Run(context.Background(), state)

	var stepErr *chain.StepError
	if !errors.As(err, &stepErr) || stepErr.Index != 1 || stepErr.Name != "describe" {
		t.Fatalf("expected a describe step error, got %v", err)
	}
	if !errors.Is(err, ErrEmptyDescription) {
		t.Errorf("expected ErrEmptyDescription, got %v", err)
	}
	if fake.images.Load() != 0 {
		t.Error("no image may be requested without a description")
	}
}

func TestRun_StepFailures(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		fake := &fakeOpenAI{description: "x"}
		h := taskstest.New(t, fake, "")
		code := cli.Execute(context.Background(), Command(), h.Env, []string{filepath.Join(t.TempDir(), "nope.png")})
		if code != cli.ExitFailure {
			t.Errorf("expected exit 1, got %d", code)
		}
		if !strings.Contains(h.Stderr.String(), "step 1 (read image) failed") {
			t.Errorf("unexpected stderr %q", h.Stderr)
		}
		if fake.chats.Load() != 0 {
			t.Error("no request may be sent")
		}
	})

	t.Run("not an image", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.txt")
		_ = os.WriteFile(path, []byte("hello"), 0o644)
		h := taskstest.New(t, &fakeOpenAI{}, "")
		if code := cli.Execute(context.Background(), Command(), h.Env, []string{path}); code != cli.ExitUsage {
			t.Errorf("expected exit 2, got %d", code)
		}
	})

	t.Run("generation rejected", func(t *testing.T) {
		fake := &fakeOpenAI{description: "a cat", imageStatus: http.StatusBadRequest}
		h := taskstest.New(t, fake, "")
		state := &State{Path: writeImage(t)}
		pipeline, _ := NewChain(h.Env, "dall-e-3", true)
		err := pipeline.Run(context.Background(), state)

		var stepErr *chain.StepError
		if !errors.As(err, &stepErr) || stepErr.Name != "generate image" {
			t.Fatalf("expected a generate step error, got %v", err)
		}
		var pe *ai.ProviderError
		if !errors.As(err, &pe) || pe.StatusCode != http.StatusBadRequest {
			t.Errorf("the provider error must be kept, got %v", err)
		}
		if state.Description != "a cat" || state.SavedAs != "" {
			t.Errorf("unexpected state %+v", state)
		}
	})
}
