package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai"
)

// StreamMessage implements ai.StreamProvider on /chat/completions with
// stream=true. The last chunks carry usage and the finish reason.
func (p *OpenAIProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	chatRequest := requestToChatCompletion(request)
	chatRequest.Stream = true
	chatRequest.StreamOptions = &streamOptions{IncludeUsage: true}

	body, err := utils.MergeExtraParams(chatRequest, request.ExtraParams)
	if err != nil {
		return nil, ai.NewProviderError(providerName, err)
	}

	res, err := utils.DoPostStream(ctx, p.client, p.baseURL+chatCompletionsEndpoint, p.apiKey, body)
	if err != nil {
		return nil, ai.NewProviderError(providerName, err)
	}

	scanner := utils.NewSSEScanner(res.Body)
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(res.Body)

		for {
			if err := ctx.Err(); err != nil {
				yield(ai.StreamEvent{}, err)
				return
			}

			payload, err := scanner.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(ai.StreamEvent{}, ai.NewProviderError(providerName, err))
				return
			}

			var chunk chatCompletionStreamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				yield(ai.StreamEvent{}, ai.NewProviderError(providerName, fmt.Errorf("failed to parse streaming chunk: %w", err)))
				return
			}
			for _, event := range chunkToStreamEvents(chunk) {
				if !yield(event, nil) {
					return
				}
			}
		}
	}), nil
}

// chunkToStreamEvents converts one chunk. Usage-only chunks have no choices.
func chunkToStreamEvents(chunk chatCompletionStreamChunk) []ai.StreamEvent {
	var events []ai.StreamEvent

	if chunk.Usage != nil {
		events = append(events, ai.StreamEvent{
			Type:  ai.StreamEventUsage,
			Model: chunk.Model,
			Usage: &ai.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			},
		})
	}

	for _, choice := range chunk.Choices {
		if choice.Index != 0 {
			continue
		}
		if choice.Delta.Content != nil && *choice.Delta.Content != "" {
			events = append(events, ai.StreamEvent{Type: ai.StreamEventContent, Content: *choice.Delta.Content, Model: chunk.Model})
		}
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			events = append(events, ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: *choice.FinishReason})
		}
	}

	return events
}
