// Package taskstest runs commands against fake provider servers.
package taskstest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/config"
)

// Harness holds the environment of one command run and its captured output.
type Harness struct {
	Env    *cli.Env
	Stdout *bytes.Buffer
	Stderr *bytes.Buffer
	Server *httptest.Server
}

// New starts handler as the base URL of every provider, all with keys set,
// and returns an environment reading stdin from the given text. Artifacts go
// to a temporary directory.
func New(t *testing.T, handler http.Handler, stdin string) *Harness {
	t.Helper()
	return NewWithInput(t, handler, strings.NewReader(stdin))
}

// NewWithInput is New with an arbitrary stdin reader.
func NewWithInput(t *testing.T, handler http.Handler, stdin io.Reader) *Harness {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	providers := map[string]config.ProviderSettings{}
	for _, name := range []string{config.OpenAI, config.Anthropic, config.Gemini, config.Cohere, config.Replicate, config.Serper} {
		providers[name] = config.ProviderSettings{Name: name, APIKey: "test-" + name, BaseURL: server.URL}
	}
	cfg := config.Config{
		OutputDir: t.TempDir(),
		Timeout:   10 * time.Second,
		Recorder:  "",
		Providers: providers,
	}

	h := &Harness{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Server: server}
	h.Env = cli.NewEnv(cfg, stdin, h.Stdout, h.Stderr, nil)
	h.Env.Factory.WithHTTPClient(server.Client())
	return h
}

// ChatReply is an OpenAI-compatible chat completion with one choice.
func ChatReply(content string) string {
	quoted, _ := json.Marshal(content)
	return `{"id":"chatcmpl-1","model":"test","choices":[{"index":0,"message":{"role":"assistant","content":` +
		string(quoted) + `},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`
}

// WriteChatStream answers as a streamed OpenAI-compatible chat completion:
// one SSE event per chunk, a finish event, a usage event and [DONE].
func WriteChatStream(w http.ResponseWriter, chunks ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	event := func(data string) {
		_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
		if flusher != nil {
			flusher.Flush()
		}
	}
	for _, chunk := range chunks {
		quoted, _ := json.Marshal(chunk)
		event(`{"id":"chatcmpl-1","model":"test","choices":[{"index":0,"delta":{"content":` + string(quoted) + `},"finish_reason":null}]}`)
	}
	event(`{"id":"chatcmpl-1","model":"test","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`)
	event(`{"id":"chatcmpl-1","model":"test","choices":[],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`)
	event("[DONE]")
}
