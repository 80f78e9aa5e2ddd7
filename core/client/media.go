package client

import (
	"context"
	"errors"

	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai"
)

// GenerateImage validates request and performs one image generation call.
func GenerateImage(ctx context.Context, provider ai.ImageProvider, request ai.ImageRequest) (*ai.ImageResponse, error) {
	if provider == nil {
		return nil, errors.New("image provider must not be nil")
	}
	if utils.IsBlank(request.Prompt) {
		return nil, ai.NewValidationError("prompt", "must not be empty")
	}
	if request.N < 0 {
		return nil, ai.NewValidationError("n", "must not be negative, got %d", request.N)
	}
	if request.Quality < 0 || request.Quality > 100 {
		return nil, ai.NewValidationError("quality", "%d is outside [1, 100]", request.Quality)
	}
	if request.Steps < 0 {
		return nil, ai.NewValidationError("steps", "must not be negative, got %d", request.Steps)
	}
	return provider.GenerateImage(ctx, request)
}

// Transcribe validates request and performs one speech-to-text call.
func Transcribe(ctx context.Context, provider ai.TranscriptionProvider, request ai.TranscriptionRequest) (*ai.TranscriptionResponse, error) {
	if provider == nil {
		return nil, errors.New("transcription provider must not be nil")
	}
	if len(request.Audio) == 0 {
		return nil, ai.NewValidationError("audio", "no audio was captured")
	}
	return provider.Transcribe(ctx, request)
}

// Synthesize validates request and performs one text-to-speech call.
func Synthesize(ctx context.Context, provider ai.SpeechProvider, request ai.SpeechRequest) (*ai.SpeechResponse, error) {
	if provider == nil {
		return nil, errors.New("speech provider must not be nil")
	}
	if utils.IsBlank(request.Input) {
		return nil, ai.NewValidationError("input", "must not be empty")
	}
	if request.Speed != 0 && (request.Speed < 0.25 || request.Speed > 4) {
		return nil, ai.NewValidationError("speed", "%.2f is outside [0.25, 4]", request.Speed)
	}
	return provider.Synthesize(ctx, request)
}
