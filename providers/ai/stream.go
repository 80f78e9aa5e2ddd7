package ai

import (
	"context"
	"iter"
	"strings"
)

// StreamEventType identifies the kind of delta carried by a StreamEvent.
type StreamEventType string

const (
	// StreamEventContent carries a text delta.
	StreamEventContent StreamEventType = "content"
	// StreamEventUsage carries token usage, typically near the end.
	StreamEventUsage StreamEventType = "usage"
	// StreamEventDone signals that the model finished normally.
	StreamEventDone StreamEventType = "done"
)

// StreamEvent is one delta of a streamed reply.
type StreamEvent struct {
	Type         StreamEventType `json:"type"`
	Content      string          `json:"content,omitempty"`
	Model        string          `json:"model,omitempty"`
	Usage        *Usage          `json:"usage,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

// StreamProvider is implemented by providers that can stream a chat reply.
// Callers detect it with a type assertion and fall back to SendMessage.
type StreamProvider interface {
	Provider
	// StreamMessage returns a stream of deltas. Errors before the first byte
	// (auth, bad request, network) are returned directly; errors in the middle
	// of the stream are yielded by the iterator.
	StreamMessage(ctx context.Context, request ChatRequest) (*ChatStream, error)
}

// ChatStream is a streamed reply. It must be consumed, with Iter or Collect,
// to release the underlying connection.
type ChatStream struct {
	iterator iter.Seq2[StreamEvent, error]
}

// NewChatStream wraps an iterator that yields events with a nil error and
// may end with a single non-nil error.
func NewChatStream(iterator iter.Seq2[StreamEvent, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// NewSingleEventStream delivers a complete response as one content event,
// an optional usage event and a done event.
func NewSingleEventStream(response *ChatResponse) *ChatStream {
	return NewChatStream(func(yield func(StreamEvent, error) bool) {
		if response.Content != "" {
			if !yield(StreamEvent{Type: StreamEventContent, Content: response.Content, Model: response.Model}, nil) {
				return
			}
		}
		if response.Usage != nil {
			if !yield(StreamEvent{Type: StreamEventUsage, Usage: response.Usage}, nil) {
				return
			}
		}
		yield(StreamEvent{Type: StreamEventDone, FinishReason: response.FinishReason}, nil)
	})
}

// Iter returns the iterator for range-over-func loops:
//
//	for event, err := range stream.Iter() {
//	    if err != nil { return err }
//	    fmt.Print(event.Content)
//	}
func (s *ChatStream) Iter() iter.Seq2[StreamEvent, error] {
	return s.iterator
}

// Collect consumes the stream and returns the assembled response. A
// mid-stream error returns the partial response together with the error.
func (s *ChatStream) Collect() (*ChatResponse, error) {
	var acc StreamAccumulator
	for event, err := range s.iterator {
		if err != nil {
			return acc.Response(), err
		}
		acc.Add(event)
	}
	return acc.Response(), nil
}

// StreamAccumulator assembles events into a ChatResponse.
type StreamAccumulator struct {
	content      strings.Builder
	model        string
	usage        *Usage
	finishReason string
}

// Add merges one event.
func (a *StreamAccumulator) Add(event StreamEvent) {
	if event.Model != "" {
		a.model = event.Model
	}
	switch event.Type {
	case StreamEventContent:
		a.content.WriteString(event.Content)
	case StreamEventUsage:
		if event.Usage != nil {
			a.usage = event.Usage
		}
	case StreamEventDone:
		a.finishReason = event.FinishReason
	}
}

// Response returns what was assembled so far, with the content trimmed the
// way synchronous replies are.
func (a *StreamAccumulator) Response() *ChatResponse {
	return &ChatResponse{
		Model:        a.model,
		Content:      strings.TrimSpace(a.content.String()),
		FinishReason: a.finishReason,
		Usage:        a.usage,
	}
}
