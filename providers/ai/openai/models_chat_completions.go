package openai

import (
	"fmt"
	"strings"

	"github.com/leofalp/aitasks/providers/ai"
)

/*
	CHAT COMPLETIONS API - INPUT
*/

type chatCompletionRequest struct {
	Model            string              `json:"model"`
	Messages         []chatMessage       `json:"messages"`
	Temperature      *float32            `json:"temperature,omitempty"`
	TopP             *float32            `json:"top_p,omitempty"`
	MaxTokens        *int                `json:"max_tokens,omitempty"`
	FrequencyPenalty *float32            `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float32            `json:"presence_penalty,omitempty"`
	N                *int                `json:"n,omitempty"`
	ResponseFormat   *chatResponseFormat `json:"response_format,omitempty"`
	Stream           bool                `json:"stream,omitempty"`
	StreamOptions    *streamOptions      `json:"stream_options,omitempty"`
}

// streamOptions asks for a final usage chunk on streamed replies.
type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []contentPart
}

// contentPart is one element of a multimodal user message.
type contentPart struct {
	Type       string            `json:"type"`
	Text       string            `json:"text,omitempty"`
	ImageURL   *contentPartImage `json:"image_url,omitempty"`
	InputAudio *contentPartAudio `json:"input_audio,omitempty"`
	File       *contentPartFile  `json:"file,omitempty"`
}

type contentPartImage struct {
	URL string `json:"url"`
}

type contentPartAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

type contentPartFile struct {
	FileName string `json:"filename"`
	FileData string `json:"file_data"`
}

type chatResponseFormat struct {
	Type string `json:"type"` // "text", "json_object"
}

/*
	CHAT COMPLETIONS API - OUTPUT
*/

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int                 `json:"index"`
	Message      chatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"` // "stop", "length", "content_filter"
}

type chatResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Refusal string `json:"refusal,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// chatCompletionStreamChunk is one SSE payload of a streamed reply.
type chatCompletionStreamChunk struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []chatStreamChoice `json:"choices"`
	Usage   *chatUsage         `json:"usage,omitempty"`
}

type chatStreamChoice struct {
	Index        int             `json:"index"`
	Delta        chatStreamDelta `json:"delta"`
	FinishReason *string         `json:"finish_reason"`
}

type chatStreamDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content"`
}

/*
	CONVERSION FUNCTIONS
*/

func requestToChatCompletion(request ai.ChatRequest) chatCompletionRequest {
	req := chatCompletionRequest{
		Model:    request.Model,
		Messages: make([]chatMessage, 0, len(request.Messages)+1),
	}
	if req.Model == "" {
		req.Model = DefaultChatModel
	}

	if request.SystemPrompt != "" {
		req.Messages = append(req.Messages, chatMessage{Role: string(ai.RoleSystem), Content: request.SystemPrompt})
	}
	for _, msg := range request.Messages {
		req.Messages = append(req.Messages, messageToChat(msg))
	}

	if cfg := request.GenerationConfig; cfg != nil {
		req.Temperature = cfg.Temperature
		if cfg.TopP > 0 {
			req.TopP = &cfg.TopP
		}
		if cfg.MaxTokens > 0 {
			req.MaxTokens = &cfg.MaxTokens
		}
		if cfg.FrequencyPenalty != 0 {
			req.FrequencyPenalty = &cfg.FrequencyPenalty
		}
		if cfg.PresencePenalty != 0 {
			req.PresencePenalty = &cfg.PresencePenalty
		}
		if cfg.N > 1 {
			req.N = &cfg.N
		}
	}

	// The schema travels in the system prompt; the API only gets the JSON mode switch.
	if request.ResponseFormat != nil && request.ResponseFormat.Type != "" {
		req.ResponseFormat = &chatResponseFormat{Type: request.ResponseFormat.Type}
	}

	return req
}

func messageToChat(msg ai.Message) chatMessage {
	if len(msg.ContentParts) == 0 {
		return chatMessage{Role: string(msg.Role), Content: msg.Content}
	}

	parts := make([]contentPart, 0, len(msg.ContentParts))
	for i, part := range msg.ContentParts {
		switch part.Type {
		case ai.ContentTypeText:
			parts = append(parts, contentPart{Type: "text", Text: part.Text})
		case ai.ContentTypeImage:
			if part.Image != nil {
				parts = append(parts, contentPart{Type: "image_url", ImageURL: &contentPartImage{URL: part.Image.DataURL()}})
			}
		case ai.ContentTypeAudio:
			if part.Audio != nil && part.Audio.Data != "" {
				parts = append(parts, contentPart{Type: "input_audio", InputAudio: &contentPartAudio{
					Data:   part.Audio.Data,
					Format: mimeTypeToAudioFormat(part.Audio.MimeType),
				}})
			}
		case ai.ContentTypeDocument:
			if part.Document != nil && part.Document.Data != "" {
				parts = append(parts, contentPart{Type: "file", File: &contentPartFile{
					FileName: documentName(i, part.Document.MimeType),
					FileData: part.Document.DataURL(),
				}})
			}
		}
	}
	return chatMessage{Role: string(msg.Role), Content: parts}
}

// mimeTypeToAudioFormat converts a MIME type into the expected OpenAI audio format.
// Defaults to "wav" when the format is unknown.
func mimeTypeToAudioFormat(mimeType string) string {
	format := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "audio/")
	switch format {
	case "", "x-wav", "wave":
		return "wav"
	case "mpeg":
		return "mp3"
	}
	return format
}

func documentName(index int, mimeType string) string {
	ext := "bin"
	if _, sub, ok := strings.Cut(mimeType, "/"); ok && sub != "" {
		ext = sub
	}
	return fmt.Sprintf("document-%d.%s", index, ext)
}

func chatCompletionToGeneric(resp chatCompletionResponse) *ai.ChatResponse {
	first := resp.Choices[0]
	out := &ai.ChatResponse{
		Id:           resp.ID,
		Model:        resp.Model,
		Content:      strings.TrimSpace(first.Message.Content),
		FinishReason: first.FinishReason,
		Refusal:      first.Message.Refusal,
	}
	if resp.Usage != nil {
		out.Usage = &ai.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	if len(resp.Choices) > 1 {
		out.Choices = make([]string, len(resp.Choices))
		for _, c := range resp.Choices {
			if c.Index >= 0 && c.Index < len(out.Choices) {
				out.Choices[c.Index] = strings.TrimSpace(c.Message.Content)
			}
		}
		out.Content = out.Choices[0]
	}
	return out
}
