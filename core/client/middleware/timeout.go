package middleware

import (
	"context"
	"time"

	"github.com/leofalp/aitasks/core/client"
	"github.com/leofalp/aitasks/providers/ai"
)

// NewTimeoutMiddleware creates a MiddlewareConfig that enforces a per-request
// deadline. If the caller's context already has a shorter deadline, that
// shorter deadline wins.
//
// For streams the deadline covers the whole stream, not only the first byte:
// it is released once the stream ends, fails or is abandoned.
func NewTimeoutMiddleware(timeout time.Duration) client.MiddlewareConfig {
	return client.MiddlewareConfig{
		Send: func(next client.SendFunc) client.SendFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()

				return next(ctx, request)
			}
		},
		Stream: func(next client.StreamFunc) client.StreamFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
				ctx, cancel := context.WithTimeout(ctx, timeout)

				stream, err := next(ctx, request)
				if err != nil {
					cancel()
					return nil, err
				}
				return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
					defer cancel()
					for event, err := range stream.Iter() {
						if !yield(event, err) || err != nil {
							return
						}
					}
				}), nil
			}
		},
	}
}
