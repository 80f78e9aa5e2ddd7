package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"

	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai"
)

type imageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"` // "url" or "b64_json"
}

type imageGenerationResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL           string `json:"url,omitempty"`
		B64JSON       string `json:"b64_json,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
}

type transcriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

type speechRequest struct {
	Model          string   `json:"model"`
	Input          string   `json:"input"`
	Voice          string   `json:"voice"`
	ResponseFormat string   `json:"response_format,omitempty"`
	Speed          *float32 `json:"speed,omitempty"`
}

// GenerateImage calls /images/generations and returns the image URLs, or the
// decoded bytes when ExtraParams asks for "response_format": "b64_json".
func (p *OpenAIProvider) GenerateImage(ctx context.Context, request ai.ImageRequest) (*ai.ImageResponse, error) {
	model := utils.FirstNonEmpty(request.Model, DefaultImageModel)
	imageReq := imageGenerationRequest{
		Model:          model,
		Prompt:         request.Prompt,
		N:              request.N,
		Size:           request.Size,
		ResponseFormat: "url",
	}
	body, err := utils.MergeExtraParams(imageReq, request.ExtraParams)
	if err != nil {
		return nil, ai.NewProviderError(providerName, err)
	}

	_, resp, err := utils.DoPostSync[imageGenerationResponse](ctx, p.client, p.baseURL+imagesEndpoint, p.apiKey, body)
	if err != nil {
		return nil, ai.NewProviderError(providerName, err)
	}
	if len(resp.Data) == 0 {
		return nil, ai.NewProviderErrorf(providerName, "image response has no data")
	}

	out := &ai.ImageResponse{Model: model, Images: make([]ai.GeneratedImage, 0, len(resp.Data))}
	for i, d := range resp.Data {
		img := ai.GeneratedImage{URL: d.URL, RevisedPrompt: d.RevisedPrompt}
		if d.B64JSON != "" {
			data, decodeErr := base64.StdEncoding.DecodeString(d.B64JSON)
			if decodeErr != nil {
				return nil, ai.NewProviderError(providerName, fmt.Errorf("image %d: %w", i, decodeErr))
			}
			img.Data = data
			img.MimeType = "image/png"
		}
		out.Images = append(out.Images, img)
	}
	return out, nil
}

// Transcribe uploads the recording to /audio/transcriptions as multipart form data.
func (p *OpenAIProvider) Transcribe(ctx context.Context, request ai.TranscriptionRequest) (*ai.TranscriptionResponse, error) {
	fields := map[string]string{
		"model":           utils.FirstNonEmpty(request.Model, DefaultTranscriptionModel),
		"language":        request.Language,
		"prompt":          request.Prompt,
		"response_format": "json",
	}
	file := utils.MultipartFile{
		Field:       "file",
		FileName:    utils.FirstNonEmpty(request.FileName, "recording.wav"),
		ContentType: utils.FirstNonEmpty(request.MimeType, "audio/wav"),
		Data:        request.Audio,
	}

	_, resp, err := utils.DoPostMultipart[transcriptionResponse](ctx, p.client, p.baseURL+transcriptionsEndpoint, p.apiKey, fields, file)
	if err != nil {
		return nil, ai.NewProviderError(providerName, err)
	}
	return &ai.TranscriptionResponse{Text: resp.Text, Language: resp.Language, Duration: resp.Duration}, nil
}

// Synthesize calls /audio/speech and returns the encoded audio.
func (p *OpenAIProvider) Synthesize(ctx context.Context, request ai.SpeechRequest) (*ai.SpeechResponse, error) {
	format := utils.FirstNonEmpty(request.Format, "mp3")
	speechReq := speechRequest{
		Model:          utils.FirstNonEmpty(request.Model, DefaultSpeechModel),
		Input:          request.Input,
		Voice:          utils.FirstNonEmpty(request.Voice, DefaultVoice),
		ResponseFormat: format,
	}
	if request.Speed != 0 {
		speechReq.Speed = &request.Speed
	}

	httpResp, audio, err := utils.DoPostRaw(ctx, p.client, p.baseURL+speechEndpoint, p.apiKey, speechReq)
	if err != nil {
		return nil, ai.NewProviderError(providerName, err)
	}
	if len(audio) == 0 {
		return nil, ai.NewProviderErrorf(providerName, "speech response is empty")
	}

	mimeType := audioMimeType(format)
	if ct := httpResp.Header.Get("Content-Type"); ct != "" {
		if parsed, _, parseErr := mime.ParseMediaType(ct); parseErr == nil && parsed != "application/octet-stream" {
			mimeType = parsed
		}
	}
	return &ai.SpeechResponse{Audio: audio, MimeType: mimeType}, nil
}

func audioMimeType(format string) string {
	switch format {
	case "mp3":
		return "audio/mpeg"
	case "wav", "opus", "aac", "flac":
		return "audio/" + format
	case "pcm":
		return "audio/L16"
	}
	return "application/octet-stream"
}
