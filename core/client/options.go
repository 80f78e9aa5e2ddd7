package client

import (
	"github.com/leofalp/aitasks/internal/jsonschema"
	"github.com/leofalp/aitasks/providers/ai"
)

// SendMessageOption customizes a single SendMessage call.
type SendMessageOption func(*sendMessageOptions)

type sendMessageOptions struct {
	parts            []ai.ContentPart
	outputSchema     *jsonschema.Schema
	jsonResponse     bool
	instructions     string
	generationConfig *ai.GenerationConfig
}

// WithImage attaches raw image bytes to the user message.
func WithImage(mimeType string, data []byte) SendMessageOption {
	return func(o *sendMessageOptions) {
		o.parts = append(o.parts, ai.NewImagePartFromBytes(mimeType, data))
	}
}

// WithImageURL attaches a remote image to the user message.
func WithImageURL(mimeType, url string) SendMessageOption {
	return func(o *sendMessageOptions) {
		o.parts = append(o.parts, ai.NewImagePartFromURI(mimeType, url))
	}
}

// WithDocument attaches a document (e.g. application/pdf) to the user message.
func WithDocument(mimeType string, data []byte) SendMessageOption {
	return func(o *sendMessageOptions) {
		o.parts = append(o.parts, ai.NewDocumentPartFromBytes(mimeType, data))
	}
}

// WithOutputSchema overrides the client's default output schema for one call.
func WithOutputSchema(schema *jsonschema.Schema) SendMessageOption {
	return func(o *sendMessageOptions) {
		o.outputSchema = schema
	}
}

// WithJSONResponse asks the provider for a JSON object without a schema.
func WithJSONResponse() SendMessageOption {
	return func(o *sendMessageOptions) {
		o.jsonResponse = true
	}
}

// WithInstructions appends text to the system prompt of this call only.
func WithInstructions(text string) SendMessageOption {
	return func(o *sendMessageOptions) {
		o.instructions = text
	}
}

// WithCallGenerationConfig replaces the generation parameters for one call.
func WithCallGenerationConfig(cfg ai.GenerationConfig) SendMessageOption {
	return func(o *sendMessageOptions) {
		o.generationConfig = &cfg
	}
}
