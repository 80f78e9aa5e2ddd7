package anthropic

import "github.com/leofalp/aitasks/providers/ai"

/*
	MESSAGES API - REQUEST TYPES
*/

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float32           `json:"temperature,omitempty"`
	TopP        *float32           `json:"top_p,omitempty"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"` // "user" or "assistant"
	Content []anthropicContentBlock `json:"content"`
}

// anthropicContentBlock is "text", "image" or "document".
type anthropicContentBlock struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"` // "base64" or "url"
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

/*
	MESSAGES API - RESPONSE TYPES
*/

type anthropicResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"` // "message" or "error"
	Role       string                  `json:"role"`
	Model      string                  `json:"model"`
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func requestToAnthropic(request ai.ChatRequest) anthropicRequest {
	req := anthropicRequest{
		Model:     request.Model,
		System:    request.SystemPrompt,
		MaxTokens: defaultMaxTokens,
		Messages:  make([]anthropicMessage, 0, len(request.Messages)),
	}
	if req.Model == "" {
		req.Model = DefaultModel
	}

	if cfg := request.GenerationConfig; cfg != nil {
		// Anthropic caps temperature at 1.
		if t := cfg.Temperature; t != nil {
			clamped := min(*t, 1)
			req.Temperature = &clamped
		}
		if cfg.TopP > 0 {
			req.TopP = &cfg.TopP
		}
		if cfg.MaxTokens > 0 {
			req.MaxTokens = cfg.MaxTokens
		}
	}

	for _, msg := range request.Messages {
		// A system message inside the history is carried by the System field.
		if msg.Role == ai.RoleSystem {
			if req.System == "" {
				req.System = msg.Content
			}
			continue
		}
		req.Messages = append(req.Messages, anthropicMessage{
			Role:    string(msg.Role),
			Content: contentBlocks(msg),
		})
	}
	return req
}

func contentBlocks(msg ai.Message) []anthropicContentBlock {
	if len(msg.ContentParts) == 0 {
		return []anthropicContentBlock{{Type: "text", Text: msg.Content}}
	}

	blocks := make([]anthropicContentBlock, 0, len(msg.ContentParts))
	for _, part := range msg.ContentParts {
		switch part.Type {
		case ai.ContentTypeText:
			blocks = append(blocks, anthropicContentBlock{Type: "text", Text: part.Text})
		case ai.ContentTypeImage:
			if part.Image != nil {
				blocks = append(blocks, anthropicContentBlock{Type: "image", Source: mediaSource(part.Image)})
			}
		case ai.ContentTypeDocument:
			if part.Document != nil {
				blocks = append(blocks, anthropicContentBlock{Type: "document", Source: mediaSource(part.Document)})
			}
		}
	}
	return blocks
}

func mediaSource(m *ai.MediaData) *anthropicSource {
	if m.URI != "" {
		return &anthropicSource{Type: "url", URL: m.URI}
	}
	return &anthropicSource{Type: "base64", MediaType: m.MimeType, Data: m.Data}
}
