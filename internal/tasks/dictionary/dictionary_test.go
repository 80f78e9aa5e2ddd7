package dictionary

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/leofalp/aitasks/core/artifact"
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/tasks/taskstest"
)

func TestRun_PrintsOnlyJSON(t *testing.T) {
	h := taskstest.New(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model          string  `json:"model"`
			Temperature    float64 `json:"temperature"`
			ResponseFormat struct {
				Type string `json:"type"`
			} `json:"response_format"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Model != "gpt-4o-mini" || body.Temperature != 0.3 || body.ResponseFormat.Type != "json_object" {
			t.Errorf("unexpected request %+v", body)
		}
		if body.Messages[0].Role != "system" || !strings.Contains(body.Messages[0].Content, `"synonyms" (array of string)`) {
			t.Errorf("the system prompt must list every key, got %q", body.Messages[0].Content)
		}
		if !strings.Contains(body.Messages[1].Content, "'sisu'") {
			t.Errorf("unexpected user message %q", body.Messages[1].Content)
		}
		// Fenced reply without the antonyms key.
		_, _ = io.WriteString(w, taskstest.ChatReply("```json\n{\"word\":\"sisu\",\"definition\":\"sitkeys\",\"synonyms\":[\"sinnikkyys\"],\"examples\":[\"Hänellä on sisua.\"]}\n```"))
	}), "")

	code := cli.Execute(context.Background(), Command(), h.Env, []string{"sisu"})
	if code != cli.ExitOK {
		t.Fatalf("exit code %d: %s", code, h.Stderr)
	}

	var entry map[string]any
	if err := json.Unmarshal(h.Stdout.Bytes(), &entry); err != nil {
		t.Fatalf("stdout must be JSON only: %v\n%s", err, h.Stdout)
	}
	if antonyms, ok := entry["antonyms"].([]any); !ok || len(antonyms) != 0 {
		t.Errorf("missing lists must be empty, got %v", entry["antonyms"])
	}
	if !strings.Contains(h.Stdout.String(), "Hänellä on sisua.") {
		t.Error("non-ASCII text must not be escaped")
	}
	if !strings.Contains(h.Stderr.String(), "warning: structured output recovered") {
		t.Errorf("expected a recovery warning on stderr, got %q", h.Stderr)
	}
}

func TestRun_PromptsWithoutArgument(t *testing.T) {
	h := taskstest.New(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, taskstest.ChatReply("Sorry, I cannot do that."))
	}), "ohjelmointi\n")

	if code := cli.Execute(context.Background(), Command(), h.Env, nil); code != cli.ExitOK {
		t.Fatalf("exit code %d: %s", code, h.Stderr)
	}

	var entry Entry
	if err := json.Unmarshal(h.Stdout.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Word != "ohjelmointi" || entry.Definition != "Sorry, I cannot do that." {
		t.Errorf("degraded entry must keep the raw reply, got %+v", entry)
	}
	if entry.Synonyms == nil || entry.Examples == nil {
		t.Error("degraded lists must be empty, not null")
	}
}

func TestRun_EmptyWordMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	h := taskstest.New(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}), "   \n")

	if code := cli.Execute(context.Background(), Command(), h.Env, nil); code != cli.ExitUsage {
		t.Errorf("expected exit 2, got %d", code)
	}
	if calls.Load() != 0 {
		t.Error("no request may be sent for an empty word")
	}
	if h.Stdout.Len() != 0 {
		t.Error("nothing may be printed to stdout on error")
	}
}

func TestRun_ProviderError(t *testing.T) {
	h := taskstest.New(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided"}}`)
	}), "")

	if code := cli.Execute(context.Background(), Command(), h.Env, []string{"word"}); code != cli.ExitFailure {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.Contains(h.Stderr.String(), "Incorrect API key provided") {
		t.Errorf("unexpected stderr %q", h.Stderr)
	}
}

func TestRun_SavesWithOutputFlag(t *testing.T) {
	h := taskstest.New(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, taskstest.ChatReply(`{"word":"kissa","definition":"eläin","synonyms":[],"antonyms":[],"examples":[]}`))
	}), "")

	if code := cli.Execute(context.Background(), Command(), h.Env, []string{"-o", "cat.json", "cat"}); code != cli.ExitOK {
		t.Fatalf("exit code %d: %s", code, h.Stderr)
	}

	var saved Entry
	if err := artifact.ReadJSON(filepath.Join(h.Env.Config.OutputDir, "cat.json"), &saved); err != nil {
		t.Fatal(err)
	}
	if saved.Word != "kissa" {
		t.Errorf("unexpected saved entry %+v", saved)
	}
	if strings.Contains(h.Stderr.String(), "warning") {
		t.Error("a strict reply must not produce a warning")
	}
}
