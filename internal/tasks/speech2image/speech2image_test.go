package speech2image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/tasks/taskstest"
)

func fakeMic(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(make([]byte, 3200))), nil
}

type fakeOpenAI struct {
	mu          sync.Mutex
	transcripts []string
	imageStatus int
	spoken      []string
	imageModel  string
	imageSize   string
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/audio/transcriptions":
		text := ""
		if len(f.transcripts) > 0 {
			text, f.transcripts = f.transcripts[0], f.transcripts[1:]
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": text})
	case "/images/generations":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.imageModel, _ = body["model"].(string)
		f.imageSize, _ = body["size"].(string)
		if f.imageStatus != 0 {
			w.WriteHeader(f.imageStatus)
			_, _ = io.WriteString(w, `{"error":{"message":"Billing hard limit has been reached"}}`)
			return
		}
		_, _ = fmt.Fprintf(w, `{"data":[{"url":"http://%s/img.png"}]}`, r.Host)
	case "/img.png":
		w.Header().Set("Content-Type", "image/png")
		_, _ = io.WriteString(w, "png")
	case "/audio/speech":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		input, _ := body["input"].(string)
		f.spoken = append(f.spoken, input)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, input)
	default:
		http.NotFound(w, r)
	}
}

func TestRun_OneRound(t *testing.T) {
	fake := &fakeOpenAI{transcripts: []string{"a fox in the snow"}}
	h := taskstest.New(t, fake, "\n\nn\n")

	if code := cli.Execute(context.Background(), NewCommand(fakeMic), h.Env, []string{"-save"}); code != cli.ExitOK {
		t.Fatalf("exit code %d: %s", code, h.Stderr)
	}

	if fake.imageModel != "dall-e-2" || fake.imageSize != "1024x1024" {
		t.Errorf("unexpected image request %s %s", fake.imageModel, fake.imageSize)
	}
	want := []string{"Generating an image based on: a fox in the snow", "Here is your generated image: a fox in the snow"}
	if strings.Join(fake.spoken, "|") != strings.Join(want, "|") {
		t.Errorf("unexpected announcements %q", fake.spoken)
	}

	dir := h.Env.Config.OutputDir
	for _, name := range []string{"speech_1_generating.mp3", "speech_1_done.mp3", "image_1.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if !strings.Contains(h.Stdout.String(), "Generated Image URL: http://") {
		t.Errorf("unexpected stdout %q", h.Stdout)
	}
}

func TestRun_FailuresAreSpokenAndLoopContinues(t *testing.T) {
	fake := &fakeOpenAI{transcripts: []string{"", "a castle"}, imageStatus: http.StatusBadRequest}
	// Round 1: silence. Round 2: a command whose image fails. Then EOF.
	h := taskstest.New(t, fake, "\n\ny\n\n\n")

	if code := cli.Execute(context.Background(), NewCommand(fakeMic), h.Env, nil); code != cli.ExitOK {
		t.Fatalf("exit code %d: %s", code, h.Stderr)
	}

	want := []string{msgRepeat, "Generating an image based on: a castle", msgFailed}
	if strings.Join(fake.spoken, "|") != strings.Join(want, "|") {
		t.Errorf("unexpected announcements %q", fake.spoken)
	}
	if !strings.Contains(h.Stderr.String(), "Billing hard limit has been reached") {
		t.Errorf("the provider message must be reported, got %q", h.Stderr)
	}
	if _, err := os.Stat(filepath.Join(h.Env.Config.OutputDir, "speech_2_failed.mp3")); err != nil {
		t.Error(err)
	}
}
