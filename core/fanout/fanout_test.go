package fanout

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leofalp/aitasks/core/client"
	"github.com/leofalp/aitasks/providers/ai"
	"github.com/leofalp/aitasks/providers/ai/openai"
)

// newTarget returns a target backed by a fake OpenAI-compatible server that
// answers after delay with the given status and body.
func newTarget(t *testing.T, name string, delay time.Duration, status int, body string, calls *atomic.Int32) Target {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		time.Sleep(delay)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)

	provider := openai.New().WithAPIKey("test").WithBaseURL(server.URL).WithHttpClient(server.Client())
	c, err := client.New(provider, client.WithModel(name))
	if err != nil {
		t.Fatal(err)
	}
	return Target{Name: name, Client: c}
}

func reply(content string) string {
	return `{"id":"1","model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"` + content + `"},"finish_reason":"stop"}]}`
}

// TestRun_IsolatesFailures checks that one failing provider yields an error
// slot tagged with its name while the others succeed, and that the wall time
// is close to the slowest provider rather than the sum.
func TestRun_IsolatesFailures(t *testing.T) {
	const delay = 200 * time.Millisecond
	targets := []Target{
		newTarget(t, "gpt", delay, http.StatusOK, reply("from gpt"), nil),
		newTarget(t, "claude", delay, http.StatusInternalServerError, `{"error":{"message":"overloaded"}}`, nil),
		newTarget(t, "cohere", delay, http.StatusOK, reply("from cohere"), nil),
	}

	start := time.Now()
	slots, err := Run(context.Background(), "hello", targets)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	for i, name := range []string{"gpt", "claude", "cohere"} {
		if slots[i].Name != name {
			t.Errorf("slot %d: expected %s, got %s", i, name, slots[i].Name)
		}
	}
	if !slots[0].OK() || slots[0].Response.Content != "from gpt" {
		t.Errorf("unexpected gpt slot %+v", slots[0])
	}
	if !slots[2].OK() || slots[2].Response.Content != "from cohere" {
		t.Errorf("unexpected cohere slot %+v", slots[2])
	}

	var pe *ai.ProviderError
	if !errors.As(slots[1].Err, &pe) || pe.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected a provider error in the claude slot, got %v", slots[1].Err)
	}
	if slots[1].Response != nil {
		t.Error("a failed slot must not carry a response")
	}

	if elapsed >= 2*delay {
		t.Errorf("requests did not run concurrently: took %v", elapsed)
	}

	failed := Failed(slots)
	if len(failed) != 1 || failed[0].Name != "claude" {
		t.Errorf("unexpected failed slots %+v", failed)
	}
}

func TestRun_ValidationMakesNoCalls(t *testing.T) {
	var calls atomic.Int32
	target := newTarget(t, "gpt", 0, http.StatusOK, reply("x"), &calls)

	if _, err := Run(context.Background(), "  ", []Target{target}); !ai.IsValidationError(err) {
		t.Errorf("expected ValidationError for a blank prompt, got %v", err)
	}
	if _, err := Run(context.Background(), "hi", nil); !ai.IsValidationError(err) {
		t.Errorf("expected ValidationError without targets, got %v", err)
	}
	if _, err := Run(context.Background(), "hi", []Target{target, {Name: "empty"}}); !ai.IsValidationError(err) {
		t.Errorf("expected ValidationError for a nil client, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no HTTP calls, got %d", calls.Load())
	}
}

type panickingSender struct{}

func (panickingSender) SendMessage(context.Context, string, ...client.SendMessageOption) (*ai.ChatResponse, error) {
	panic("boom")
}

func TestRun_PanicStaysInSlot(t *testing.T) {
	slots, err := Run(context.Background(), "hi", []Target{
		{Name: "bad", Client: panickingSender{}},
		newTarget(t, "good", 0, http.StatusOK, reply("ok"), nil),
	})
	if err != nil {
		t.Fatal(err)
	}
	if slots[0].Err == nil || slots[0].OK() {
		t.Errorf("expected the panic to be reported, got %+v", slots[0])
	}
	if !slots[1].OK() {
		t.Errorf("the healthy target must still answer: %+v", slots[1])
	}
}

func TestRun_Limit(t *testing.T) {
	const delay = 100 * time.Millisecond
	targets := []Target{
		newTarget(t, "a", delay, http.StatusOK, reply("a"), nil),
		newTarget(t, "b", delay, http.StatusOK, reply("b"), nil),
	}

	start := time.Now()
	slots, err := Run(context.Background(), "hi", targets, WithLimit(1))
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 2*delay {
		t.Error("WithLimit(1) must serialize the requests")
	}
	if len(Failed(slots)) != 0 {
		t.Errorf("unexpected failures %+v", slots)
	}
}
