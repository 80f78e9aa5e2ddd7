package replicate

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"os"
	"strings"

	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai"
)

const (
	providerName = "replicate"

	defaultBaseURL = "https://api.replicate.com/v1"
	DefaultModel   = "black-forest-labs/flux-schnell"

	// waitSeconds is the longest synchronous wait the API allows.
	waitSeconds = 60
)

// ReplicateProvider runs image models through the predictions endpoint.
type ReplicateProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New reads REPLICATE_API_TOKEN (or REPLICATE_API_KEY) and REPLICATE_API_BASE_URL.
func New() *ReplicateProvider {
	baseURL := os.Getenv("REPLICATE_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &ReplicateProvider{
		apiKey:  utils.FirstNonEmpty(os.Getenv("REPLICATE_API_TOKEN"), os.Getenv("REPLICATE_API_KEY")),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

func (p *ReplicateProvider) WithAPIKey(apiKey string) *ReplicateProvider {
	p.apiKey = apiKey
	return p
}

func (p *ReplicateProvider) WithBaseURL(baseURL string) *ReplicateProvider {
	p.baseURL = baseURL
	return p
}

func (p *ReplicateProvider) WithHttpClient(httpClient *http.Client) *ReplicateProvider {
	p.client = httpClient
	return p
}

type predictionRequest struct {
	Input map[string]any `json:"input"`
}

type prediction struct {
	ID     string          `json:"id"`
	Model  string          `json:"model"`
	Status string          `json:"status"` // starting, processing, succeeded, failed, canceled
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

// GenerateImage creates one prediction and returns the output URLs.
func (p *ReplicateProvider) GenerateImage(ctx context.Context, request ai.ImageRequest) (*ai.ImageResponse, error) {
	if p.apiKey == "" {
		return nil, ai.NewValidationError("api_key", "REPLICATE_API_TOKEN is not set")
	}

	model := utils.FirstNonEmpty(request.Model, DefaultModel)
	owner, name, ok := strings.Cut(model, "/")
	if !ok || owner == "" || name == "" {
		return nil, ai.NewValidationError("model", "%q is not in owner/name form", model)
	}

	url := fmt.Sprintf("%s/models/%s/%s/predictions", p.baseURL, owner, name)
	_, resp, err := utils.DoPostSync[prediction](ctx, p.client, url, p.apiKey,
		predictionRequest{Input: buildInput(request)},
		utils.HeaderOption{Key: "Prefer", Value: fmt.Sprintf("wait=%d", waitSeconds)},
	)
	if err != nil {
		return nil, ai.NewProviderError(providerName, err)
	}

	switch resp.Status {
	case "succeeded":
	case "failed", "canceled":
		return nil, ai.NewProviderErrorf(providerName, "prediction %s %s: %v", resp.ID, resp.Status, resp.Error)
	default:
		return nil, ai.NewProviderErrorf(providerName, "prediction %s did not finish in %ds (status %q)", resp.ID, waitSeconds, resp.Status)
	}

	urls, err := outputURLs(resp.Output)
	if err != nil {
		return nil, ai.NewProviderError(providerName, err)
	}
	if len(urls) == 0 {
		return nil, ai.NewProviderErrorf(providerName, "prediction %s returned no output", resp.ID)
	}

	out := &ai.ImageResponse{Model: model, Images: make([]ai.GeneratedImage, 0, len(urls))}
	for _, u := range urls {
		out.Images = append(out.Images, ai.GeneratedImage{URL: u, MimeType: mimeFromFormat(request.OutputFormat)})
	}
	return out, nil
}

// buildInput maps an ImageRequest onto the flux-schnell input fields.
// ExtraParams are applied last and win over the mapped values.
func buildInput(request ai.ImageRequest) map[string]any {
	input := map[string]any{
		"prompt":     request.Prompt,
		"go_fast":    true,
		"megapixels": "1",
	}
	if request.NegativePrompt != "" {
		input["negative_prompt"] = request.NegativePrompt
	}
	if request.AspectRatio != "" {
		input["aspect_ratio"] = request.AspectRatio
	}
	if request.N > 0 {
		input["num_outputs"] = request.N
	}
	if request.OutputFormat != "" {
		input["output_format"] = request.OutputFormat
	}
	if request.Quality > 0 {
		input["output_quality"] = request.Quality
	}
	if request.Steps > 0 {
		input["num_inference_steps"] = request.Steps
	}
	if request.Seed != nil {
		input["seed"] = *request.Seed
	}
	maps.Copy(input, request.ExtraParams)
	return input
}

// outputURLs accepts both output shapes the API uses: a single URL string or
// a list of URLs.
func outputURLs(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("unexpected prediction output %s", utils.TruncateString(string(raw), 200))
	}
	return []string{single}, nil
}

func mimeFromFormat(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "", "webp":
		return "image/webp"
	}
	return ""
}
