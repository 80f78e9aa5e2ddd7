package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/leofalp/aitasks/providers/ai"
)

// makeSendFunc returns a SendFunc that sleeps for the given duration before
// returning, simulating a slow provider.
func makeSendFunc(sleep time.Duration, resp *ai.ChatResponse, err error) func(context.Context, ai.ChatRequest) (*ai.ChatResponse, error) {
	return func(ctx context.Context, _ ai.ChatRequest) (*ai.ChatResponse, error) {
		select {
		case <-time.After(sleep):
			return resp, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// TestTimeoutMiddleware_SendCompletesBeforeTimeout verifies that a fast provider
// returns its response successfully.
func TestTimeoutMiddleware_SendCompletesBeforeTimeout(t *testing.T) {
	fast := makeSendFunc(0, &ai.ChatResponse{Content: "ok", FinishReason: "stop"}, nil)

	chain := NewTimeoutMiddleware(100 * time.Millisecond).Send(fast)

	resp, err := chain(context.Background(), ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("expected 'ok', got %q", resp.Content)
	}
}

// TestTimeoutMiddleware_SendExceedsTimeout verifies that a slow provider causes
// a DeadlineExceeded error.
func TestTimeoutMiddleware_SendExceedsTimeout(t *testing.T) {
	slow := makeSendFunc(200*time.Millisecond, nil, nil)

	chain := NewTimeoutMiddleware(20 * time.Millisecond).Send(slow)

	_, err := chain(context.Background(), ai.ChatRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

// TestLoggingMiddleware_Success verifies request and completion entries.
func TestLoggingMiddleware_Success(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	resp := &ai.ChatResponse{
		Model:        "gpt-4o-mini",
		Content:      "hello there",
		FinishReason: "stop",
		Usage:        &ai.Usage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7},
	}
	chain := NewLoggingMiddleware(logger, LogLevelVerbose).Send(makeSendFunc(0, resp, nil))

	request := ai.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []ai.Message{ai.NewUserMessage("describe", ai.NewImagePart("image/png", "AAAA"))},
	}
	if _, err := chain(context.Background(), request); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		`msg="llm send"`,
		`msg="llm send completed"`,
		"message_count=1",
		"attachments=1",
		"total_tokens=7",
		"finish_reason=stop",
		`response_content="hello there"`,
		"last_message_content=describe",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output:\n%s", want, out)
		}
	}
}

// TestLoggingMiddleware_Error verifies that failures are logged and returned.
func TestLoggingMiddleware_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	providerErr := &ai.ProviderError{Provider: "openai", StatusCode: 401, Message: "bad key"}
	chain := NewLoggingMiddleware(logger, LogLevelMinimal).Send(makeSendFunc(0, nil, providerErr))

	_, err := chain(context.Background(), ai.ChatRequest{Model: "gpt-4o"})
	if !errors.Is(err, providerErr) {
		t.Fatalf("expected provider error to pass through, got %v", err)
	}
	if !strings.Contains(buf.String(), `msg="llm send failed"`) {
		t.Errorf("expected failure entry, got:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "message_count") {
		t.Error("minimal level must not log message_count")
	}
}

// makeStreamFunc streams resp through a single-event stream.
func makeStreamFunc(resp *ai.ChatResponse) func(context.Context, ai.ChatRequest) (*ai.ChatStream, error) {
	return func(ctx context.Context, _ ai.ChatRequest) (*ai.ChatStream, error) {
		return ai.NewSingleEventStream(resp), nil
	}
}

// TestTimeoutMiddleware_StreamDeadlineCoversIteration verifies that the
// deadline stays active while the stream is read and is released afterwards.
func TestTimeoutMiddleware_StreamDeadlineCoversIteration(t *testing.T) {
	var streamCtx context.Context
	next := func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
		streamCtx = ctx
		return makeStreamFunc(&ai.ChatResponse{Content: "ok", FinishReason: "stop"})(ctx, request)
	}

	stream, err := NewTimeoutMiddleware(time.Minute).Stream(next)(context.Background(), ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := streamCtx.Deadline(); !ok {
		t.Fatal("expected a deadline on the stream context")
	}
	if streamCtx.Err() != nil {
		t.Fatal("the deadline must not be released before the stream is read")
	}

	resp, err := stream.Collect()
	if err != nil || resp.Content != "ok" {
		t.Fatalf("unexpected result %+v, %v", resp, err)
	}
	if !errors.Is(streamCtx.Err(), context.Canceled) {
		t.Errorf("expected the context to be released after the stream, got %v", streamCtx.Err())
	}
}

func TestLoggingMiddleware_Stream(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	resp := &ai.ChatResponse{
		Content:      "streamed",
		FinishReason: "stop",
		Usage:        &ai.Usage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4},
	}
	stream, err := NewLoggingMiddleware(logger, LogLevelStandard).Stream(makeStreamFunc(resp))(context.Background(), ai.ChatRequest{Model: "gpt-4o"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "llm stream completed") {
		t.Fatal("completion must be logged only after the stream is read")
	}
	if _, err := stream.Collect(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{`msg="llm stream"`, `msg="llm stream completed"`, "model=gpt-4o", "total_tokens=4", "finish_reason=stop"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output:\n%s", want, out)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"minimal":  LogLevelMinimal,
		"standard": LogLevelStandard,
		"verbose":  LogLevelVerbose,
		"":         LogLevelStandard,
		"loud":     LogLevelStandard,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
