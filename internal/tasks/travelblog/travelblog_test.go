package travelblog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/config"
	"github.com/leofalp/aitasks/internal/tasks/taskstest"
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatBody struct {
	Model            string    `json:"model"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
	PresencePenalty  float64   `json:"presence_penalty"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
	Stream           bool      `json:"stream"`
	Messages         []message `json:"messages"`
}

// recorder streams "post N" for the Nth request in two SSE chunks.
type recorder struct {
	mu       sync.Mutex
	requests []chatBody
	breakAt  int
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body chatBody
	_ = json.NewDecoder(r.Body).Decode(&body)
	rec.mu.Lock()
	rec.requests = append(rec.requests, body)
	n := len(rec.requests)
	rec.mu.Unlock()

	if n == rec.breakAt {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"half a po\"}}]}\n\ndata: {broken\n\n")
		return
	}
	taskstest.WriteChatStream(w, "\npost", fmt.Sprintf(" %d", n))
}

func TestRun_ThreeVersionsShareHistory(t *testing.T) {
	rec := &recorder{}
	h := taskstest.New(t, rec, "Nordic coast\nquit\n")

	if code := cli.Execute(context.Background(), Command(), h.Env, nil); code != cli.ExitOK {
		t.Fatalf("exit code %d: %s", code, h.Stderr)
	}

	if len(rec.requests) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(rec.requests))
	}
	first := rec.requests[0]
	if !first.Stream {
		t.Error("stories must be streamed")
	}
	if first.Temperature != 1.5 || first.TopP != 1 || first.PresencePenalty != 1 || first.FrequencyPenalty != 1 {
		t.Errorf("unexpected generation parameters %+v", first)
	}
	if first.Messages[0].Role != "system" || first.Messages[0].Content != SystemPrompt {
		t.Errorf("the system prompt must come first, got %+v", first.Messages[0])
	}

	// The third request replays: system, user, post 1, user, post 2, user.
	third := rec.requests[2].Messages
	wantRoles := []string{"system", "user", "assistant", "user", "assistant", "user"}
	if len(third) != len(wantRoles) {
		t.Fatalf("unexpected history %+v", third)
	}
	for i, role := range wantRoles {
		if third[i].Role != role {
			t.Errorf("message %d: role %q, want %q", i, third[i].Role, role)
		}
	}
	if third[2].Content != "post 1" || third[4].Content != "post 2" || third[5].Content != "Nordic coast" {
		t.Errorf("unexpected history %+v", third)
	}

	out := h.Stdout.String()
	if !strings.Contains(out, "Story 1:\npost 1\n") || !strings.Contains(out, "Story 3:\npost 3\n") {
		t.Errorf("unexpected output %q", out)
	}
	if !strings.Contains(h.Stderr.String(), "Farewell!") {
		t.Error("missing farewell")
	}
}

// TestRun_BrokenStreamStopsWithoutStoringReply checks that a stream failing
// halfway prints what arrived, fails the run and keeps the reply out of the
// history.
func TestRun_BrokenStreamStopsWithoutStoringReply(t *testing.T) {
	rec := &recorder{breakAt: 2}
	h := taskstest.New(t, rec, "Alps\nquit\n")

	if code := cli.Execute(context.Background(), Command(), h.Env, nil); code != cli.ExitFailure {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if len(rec.requests) != 2 {
		t.Fatalf("the run must stop at the broken story, got %d requests", len(rec.requests))
	}
	if out := h.Stdout.String(); !strings.Contains(out, "Story 1:\npost 1\n") || !strings.Contains(out, "Story 2:\nhalf a po\n") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestRun_ExitWords(t *testing.T) {
	for _, stdin := range []string{"exit\n", "QUIT\n", "\n", ""} {
		rec := &recorder{}
		h := taskstest.New(t, rec, stdin)
		if code := cli.Execute(context.Background(), Command(), h.Env, nil); code != cli.ExitOK {
			t.Errorf("%q: exit code %d", stdin, code)
		}
		if len(rec.requests) != 0 {
			t.Errorf("%q: no request may be sent", stdin)
		}
	}
}

func TestRun_LocalServerWithoutKey(t *testing.T) {
	rec := &recorder{}
	h := taskstest.New(t, rec, "Lapland\nexit\n")
	settings := h.Env.Config.Providers[config.OpenAI]
	settings.APIKey = ""
	h.Env.Config.Providers[config.OpenAI] = settings

	code := cli.Execute(context.Background(), Command(), h.Env, []string{"-versions", "1", "-model", "gemma-3-4b-it"})
	if code != cli.ExitOK {
		t.Fatalf("exit code %d: %s", code, h.Stderr)
	}
	if len(rec.requests) != 1 || rec.requests[0].Model != "gemma-3-4b-it" {
		t.Errorf("unexpected requests %+v", rec.requests)
	}
}

func TestRun_InvalidVersions(t *testing.T) {
	h := taskstest.New(t, &recorder{}, "")
	if code := cli.Execute(context.Background(), Command(), h.Env, []string{"-versions", "0"}); code != cli.ExitUsage {
		t.Errorf("expected exit 2, got %d", code)
	}
}
