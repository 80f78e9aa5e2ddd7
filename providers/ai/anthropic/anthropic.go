package anthropic

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai"
)

const (
	providerName = "anthropic"

	defaultBaseURL   = "https://api.anthropic.com/v1"
	messagesEndpoint = "/messages"

	// anthropicVersion pins the response format independently of the URL.
	anthropicVersion = "2023-06-01"

	DefaultModel = "claude-3-5-sonnet-20240620"

	// defaultMaxTokens is used when the request leaves it unset; the API requires one.
	defaultMaxTokens = 1024
)

// AnthropicProvider implements [ai.Provider] for the Messages API.
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns a provider initialized from ANTHROPIC_API_KEY and ANTHROPIC_API_BASE_URL.
func New() *AnthropicProvider {
	baseURL := os.Getenv("ANTHROPIC_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &AnthropicProvider{
		apiKey:  os.Getenv("ANTHROPIC_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

func (p *AnthropicProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

func (p *AnthropicProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

func (p *AnthropicProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// buildHeaders returns the headers required on every request. Anthropic does
// not use Bearer tokens.
func (p *AnthropicProvider) buildHeaders() []utils.HeaderOption {
	return []utils.HeaderOption{
		{Key: "x-api-key", Value: p.apiKey},
		{Key: "anthropic-version", Value: anthropicVersion},
	}
}

// SendMessage performs one Messages API call and concatenates the text blocks
// of the reply.
func (p *AnthropicProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if p.apiKey == "" {
		return nil, ai.NewValidationError("api_key", "ANTHROPIC_API_KEY is not set")
	}

	body, err := utils.MergeExtraParams(requestToAnthropic(request), request.ExtraParams)
	if err != nil {
		return nil, ai.NewProviderError(providerName, err)
	}

	_, resp, err := utils.DoPostSync[anthropicResponse](ctx, p.client, p.baseURL+messagesEndpoint, "", body, p.buildHeaders()...)
	if err != nil {
		return nil, ai.NewProviderError(providerName, err)
	}
	if resp.Type == "error" && resp.Error != nil {
		return nil, ai.NewProviderErrorf(providerName, "%s: %s", resp.Error.Type, resp.Error.Message)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 && resp.StopReason != "refusal" {
		return nil, ai.NewProviderErrorf(providerName, "response %q has no text content", resp.ID)
	}

	out := &ai.ChatResponse{
		Id:           resp.ID,
		Model:        resp.Model,
		Content:      strings.TrimSpace(text.String()),
		FinishReason: mapStopReason(resp.StopReason),
		Usage: &ai.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
	if resp.StopReason == "refusal" {
		out.Refusal = out.Content
	}
	return out, nil
}

// mapStopReason converts Anthropic stop reasons to the OpenAI-style values
// used across providers.
func mapStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	case "refusal":
		return "content_filter"
	}
	return reason
}
