package ai

import (
	"context"
	"net/http"
)

// Provider is the core interface that every chat provider implementation must
// satisfy. A call to SendMessage performs exactly one HTTP request.
type Provider interface {
	// SendMessage sends a chat request to the provider and returns the
	// completed response. Failures of the remote call are returned as
	// *ProviderError.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// WithAPIKey sets the API key used for authenticating requests.
	WithAPIKey(apiKey string) Provider

	// WithBaseURL overrides the default base URL for API requests.
	WithBaseURL(baseURL string) Provider

	// WithHttpClient sets the HTTP client used for outbound requests.
	WithHttpClient(httpClient *http.Client) Provider
}

// ImageProvider generates images from a text prompt.
type ImageProvider interface {
	GenerateImage(ctx context.Context, request ImageRequest) (*ImageResponse, error)
}

// TranscriptionProvider turns recorded speech into text.
type TranscriptionProvider interface {
	Transcribe(ctx context.Context, request TranscriptionRequest) (*TranscriptionResponse, error)
}

// SpeechProvider turns text into spoken audio.
type SpeechProvider interface {
	Synthesize(ctx context.Context, request SpeechRequest) (*SpeechResponse, error)
}
