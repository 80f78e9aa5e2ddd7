package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/leofalp/aitasks/core/client"
	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai"
)

// LogLevel controls how much detail the logging middleware emits per request.
type LogLevel int

const (
	// LogLevelMinimal logs only the model name, total duration, and token counts.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard logs everything in Minimal plus the message count,
	// attachment count and finish reason.
	LogLevelStandard

	// LogLevelVerbose logs everything in Standard plus the last user message and
	// the response content, each truncated to 500 characters.
	//
	// WARNING: raw prompt and response text may contain personal data. Use for
	// local debugging only.
	LogLevelVerbose
)

// truncateLen is the maximum content length included in verbose log output.
const truncateLen = 500

// ParseLogLevel maps "minimal", "standard" and "verbose" to a LogLevel.
// Anything else is LogLevelStandard.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "minimal":
		return LogLevelMinimal
	case "verbose":
		return LogLevelVerbose
	default:
		return LogLevelStandard
	}
}

// NewLoggingMiddleware creates a MiddlewareConfig that emits structured slog
// entries before and after every provider call. Streams are logged when they
// start and when they end. A nil logger means slog.Default().
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) client.MiddlewareConfig {
	if logger == nil {
		logger = slog.Default()
	}
	return client.MiddlewareConfig{
		Send: func(next client.SendFunc) client.SendFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				logger.InfoContext(ctx, "llm send",
					buildRequestAttrs(request, level)...,
				)

				start := time.Now()
				response, err := next(ctx, request)
				elapsed := time.Since(start)

				if err != nil {
					logger.ErrorContext(ctx, "llm send failed",
						slog.String("model", request.Model),
						slog.Duration("duration", elapsed),
						slog.String("error", err.Error()),
					)
					return nil, err
				}

				logger.InfoContext(ctx, "llm send completed",
					buildResponseAttrs(response, elapsed, level)...,
				)

				return response, nil
			}
		},
		Stream: func(next client.StreamFunc) client.StreamFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
				logger.InfoContext(ctx, "llm stream",
					buildRequestAttrs(request, level)...,
				)

				start := time.Now()
				stream, err := next(ctx, request)
				if err != nil {
					logger.ErrorContext(ctx, "llm stream failed",
						slog.String("model", request.Model),
						slog.Duration("duration", time.Since(start)),
						slog.String("error", err.Error()),
					)
					return nil, err
				}
				return logStream(ctx, logger, stream, request.Model, level, start), nil
			}
		},
	}
}

// logStream passes events through and logs once the stream ends.
func logStream(ctx context.Context, logger *slog.Logger, stream *ai.ChatStream, model string, level LogLevel, start time.Time) *ai.ChatStream {
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		var acc ai.StreamAccumulator
		for event, err := range stream.Iter() {
			if err != nil {
				logger.ErrorContext(ctx, "llm stream failed",
					slog.String("model", model),
					slog.Duration("duration", time.Since(start)),
					slog.String("error", err.Error()),
				)
				yield(event, err)
				return
			}
			acc.Add(event)
			if !yield(event, nil) {
				logger.InfoContext(ctx, "llm stream abandoned",
					slog.String("model", model),
					slog.Duration("duration", time.Since(start)),
				)
				return
			}
		}

		response := acc.Response()
		response.Model = utils.FirstNonEmpty(response.Model, model)
		logger.InfoContext(ctx, "llm stream completed",
			buildResponseAttrs(response, time.Since(start), level)...,
		)
	})
}

// buildRequestAttrs returns slog attributes for an outgoing chat request,
// expanding detail according to the requested verbosity level.
func buildRequestAttrs(request ai.ChatRequest, level LogLevel) []any {
	attrs := []any{
		slog.String("model", request.Model),
	}

	if level >= LogLevelStandard {
		attachments := 0
		for _, m := range request.Messages {
			for _, p := range m.ContentParts {
				if p.Type != ai.ContentTypeText {
					attachments++
				}
			}
		}
		attrs = append(attrs, slog.Int("message_count", len(request.Messages)))
		if attachments > 0 {
			attrs = append(attrs, slog.Int("attachments", attachments))
		}
	}

	if level >= LogLevelVerbose && len(request.Messages) > 0 {
		last := request.Messages[len(request.Messages)-1]
		attrs = append(attrs,
			slog.String("last_message_role", string(last.Role)),
			slog.String("last_message_content", utils.TruncateString(last.Content, truncateLen)),
		)
	}

	return attrs
}

// buildResponseAttrs returns slog attributes for a completed chat response,
// expanding detail according to the requested verbosity level.
func buildResponseAttrs(response *ai.ChatResponse, elapsed time.Duration, level LogLevel) []any {
	attrs := []any{
		slog.String("model", response.Model),
		slog.Duration("duration", elapsed),
	}

	if response.Usage != nil {
		attrs = append(attrs,
			slog.Int("prompt_tokens", response.Usage.PromptTokens),
			slog.Int("completion_tokens", response.Usage.CompletionTokens),
			slog.Int("total_tokens", response.Usage.TotalTokens),
		)
	}

	if level >= LogLevelStandard && response.FinishReason != "" {
		attrs = append(attrs, slog.String("finish_reason", response.FinishReason))
	}

	if level >= LogLevelVerbose && response.Content != "" {
		attrs = append(attrs,
			slog.String("response_content", utils.TruncateString(response.Content, truncateLen)),
		)
	}

	return attrs
}
