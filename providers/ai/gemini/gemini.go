package gemini

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai"
)

const (
	providerName = "gemini"

	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-flash"
)

// GeminiProvider implements the ai.Provider interface for Google's Gemini API.
type GeminiProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a new Gemini provider instance with default values from environment.
// Environment variables:
//   - GEMINI_API_KEY: API key for authentication
//   - GEMINI_API_BASE_URL: Base URL for API (optional, defaults to Google's API)
func New() *GeminiProvider {
	baseURL := os.Getenv("GEMINI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &GeminiProvider{
		apiKey:  os.Getenv("GEMINI_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key for the provider.
func (p *GeminiProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API.
func (p *GeminiProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client.
func (p *GeminiProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// SendMessage sends a chat request to models/{model}:generateContent.
func (p *GeminiProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if p.apiKey == "" {
		return nil, ai.NewValidationError("api_key", "GEMINI_API_KEY is not set")
	}

	model := utils.FirstNonEmpty(request.Model, DefaultModel)
	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, model)

	body, err := utils.MergeExtraParams(requestToGemini(request), request.ExtraParams)
	if err != nil {
		return nil, ai.NewProviderError(providerName, err)
	}

	_, resp, err := utils.DoPostSync[generateContentResponse](ctx, p.client, url, "", body,
		utils.HeaderOption{Key: "x-goog-api-key", Value: p.apiKey},
	)
	if err != nil {
		return nil, ai.NewProviderError(providerName, err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, ai.NewProviderErrorf(providerName, "prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, ai.NewProviderErrorf(providerName, "response has no candidates")
	}

	result := geminiToGeneric(*resp)
	result.Model = utils.FirstNonEmpty(resp.ModelVersion, model)
	return result, nil
}
