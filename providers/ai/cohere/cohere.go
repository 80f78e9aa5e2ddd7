package cohere

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai"
)

const (
	providerName = "cohere"

	defaultBaseURL = "https://api.cohere.com"
	chatEndpoint   = "/v2/chat"

	DefaultModel = "command-r-plus"
)

// CohereProvider implements the ai.Provider interface for Cohere.
type CohereProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a provider from COHERE_API_KEY and COHERE_API_BASE_URL.
func New() *CohereProvider {
	baseURL := os.Getenv("COHERE_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &CohereProvider{
		apiKey:  os.Getenv("COHERE_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key for the provider.
func (p *CohereProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API.
func (p *CohereProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client.
func (p *CohereProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

type chatRequest struct {
	Model            string          `json:"model"`
	Messages         []chatMessage   `json:"messages"`
	Temperature      *float32        `json:"temperature,omitempty"`
	MaxTokens        *int            `json:"max_tokens,omitempty"`
	P                *float32        `json:"p,omitempty"`
	FrequencyPenalty *float32        `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float32        `json:"presence_penalty,omitempty"`
	ResponseFormat   *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"` // system, user, assistant
	Content any    `json:"content"`
}

type contentItem struct {
	Type     string    `json:"type"` // "text" or "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID           string `json:"id"`
	FinishReason string `json:"finish_reason"`
	Message      struct {
		Role    string        `json:"role"`
		Content []contentItem `json:"content"`
	} `json:"message"`
	Usage *struct {
		Tokens struct {
			InputTokens  float64 `json:"input_tokens"`
			OutputTokens float64 `json:"output_tokens"`
		} `json:"tokens"`
	} `json:"usage,omitempty"`
}

// SendMessage performs one /v2/chat call.
func (p *CohereProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if p.apiKey == "" {
		return nil, ai.NewValidationError("api_key", "COHERE_API_KEY is not set")
	}

	model := utils.FirstNonEmpty(request.Model, DefaultModel)
	body, err := utils.MergeExtraParams(requestToCohere(model, request), request.ExtraParams)
	if err != nil {
		return nil, ai.NewProviderError(providerName, err)
	}

	_, resp, err := utils.DoPostSync[chatResponse](ctx, p.client, p.baseURL+chatEndpoint, p.apiKey, body)
	if err != nil {
		return nil, ai.NewProviderError(providerName, err)
	}

	var text strings.Builder
	for _, c := range resp.Message.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if text.Len() == 0 {
		return nil, ai.NewProviderErrorf(providerName, "response %q has no text content", resp.ID)
	}

	out := &ai.ChatResponse{
		Id:           resp.ID,
		Model:        model,
		Content:      strings.TrimSpace(text.String()),
		FinishReason: mapFinishReason(resp.FinishReason),
	}
	if resp.Usage != nil {
		in, outTokens := int(resp.Usage.Tokens.InputTokens), int(resp.Usage.Tokens.OutputTokens)
		out.Usage = &ai.Usage{PromptTokens: in, CompletionTokens: outTokens, TotalTokens: in + outTokens}
	}
	return out, nil
}

func requestToCohere(model string, request ai.ChatRequest) chatRequest {
	req := chatRequest{Model: model, Messages: make([]chatMessage, 0, len(request.Messages)+1)}

	if request.SystemPrompt != "" {
		req.Messages = append(req.Messages, chatMessage{Role: string(ai.RoleSystem), Content: request.SystemPrompt})
	}
	for _, msg := range request.Messages {
		req.Messages = append(req.Messages, messageToCohere(msg))
	}

	if cfg := request.GenerationConfig; cfg != nil {
		// Cohere accepts temperature in [0, 1].
		if t := cfg.Temperature; t != nil {
			clamped := min(*t, 1)
			req.Temperature = &clamped
		}
		if cfg.MaxTokens > 0 {
			req.MaxTokens = &cfg.MaxTokens
		}
		if cfg.TopP > 0 {
			p := min(cfg.TopP, 0.99)
			req.P = &p
		}
		if cfg.FrequencyPenalty > 0 {
			fp := min(cfg.FrequencyPenalty, 1)
			req.FrequencyPenalty = &fp
		}
		if cfg.PresencePenalty > 0 {
			pp := min(cfg.PresencePenalty, 1)
			req.PresencePenalty = &pp
		}
	}

	if request.ResponseFormat != nil && request.ResponseFormat.Type == "json_object" {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return req
}

func messageToCohere(msg ai.Message) chatMessage {
	if !msg.HasMultimodalContent() {
		return chatMessage{Role: string(msg.Role), Content: msg.Content}
	}
	items := make([]contentItem, 0, len(msg.ContentParts))
	for _, part := range msg.ContentParts {
		switch part.Type {
		case ai.ContentTypeText:
			items = append(items, contentItem{Type: "text", Text: part.Text})
		case ai.ContentTypeImage:
			if part.Image != nil {
				items = append(items, contentItem{Type: "image_url", ImageURL: &imageURL{URL: part.Image.DataURL()}})
			}
		}
	}
	return chatMessage{Role: string(msg.Role), Content: items}
}

func mapFinishReason(reason string) string {
	switch reason {
	case "COMPLETE", "STOP_SEQUENCE":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	}
	return strings.ToLower(reason)
}
