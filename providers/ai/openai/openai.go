package openai

import (
	"context"
	"net/http"
	"os"

	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai"
)

const (
	providerName = "openai"

	defaultBaseURL          = "https://api.openai.com/v1"
	chatCompletionsEndpoint = "/chat/completions"
	imagesEndpoint          = "/images/generations"
	transcriptionsEndpoint  = "/audio/transcriptions"
	speechEndpoint          = "/audio/speech"

	DefaultChatModel          = "gpt-4o-mini"
	DefaultImageModel         = "dall-e-3"
	DefaultTranscriptionModel = "whisper-1"
	DefaultSpeechModel        = "tts-1"
	DefaultVoice              = "alloy"
)

// OpenAIProvider talks to the OpenAI REST API.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a provider configured from OPENAI_API_KEY and OPENAI_API_BASE_URL.
func New() *OpenAIProvider {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OpenAIProvider{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key for the provider
func (p *OpenAIProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API
func (p *OpenAIProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client
func (p *OpenAIProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// SendMessage performs one /chat/completions call.
func (p *OpenAIProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	body, err := utils.MergeExtraParams(requestToChatCompletion(request), request.ExtraParams)
	if err != nil {
		return nil, ai.NewProviderError(providerName, err)
	}

	_, resp, err := utils.DoPostSync[chatCompletionResponse](ctx, p.client, p.baseURL+chatCompletionsEndpoint, p.apiKey, body)
	if err != nil {
		return nil, ai.NewProviderError(providerName, err)
	}
	if len(resp.Choices) == 0 {
		return nil, ai.NewProviderErrorf(providerName, "response %q has no choices", resp.ID)
	}

	return chatCompletionToGeneric(*resp), nil
}
