package ai

import (
	"encoding/base64"
	"strings"

	"github.com/leofalp/aitasks/internal/jsonschema"
)

/*
	##### PROVIDER INPUT #####
*/

// ChatRequest represents a request to send a chat message
type ChatRequest struct {
	Model            string            `json:"model,omitempty"`             // Model name or identifier
	Messages         []Message         `json:"messages"`                    // Contains all messages in the conversation except system prompt
	SystemPrompt     string            `json:"system_prompt,omitempty"`     // Optional system prompt
	ResponseFormat   *ResponseFormat   `json:"response_format,omitempty"`   // Optional response format
	GenerationConfig *GenerationConfig `json:"generation_config,omitempty"` // Optional generation configuration
	ExtraParams      map[string]any    `json:"extra_params,omitempty"`      // Provider-specific fields merged into the request body
}

// Message represents a single message in a conversation
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content,omitempty"`

	// ContentParts carries multimodal input (images, audio, documents).
	// When present, providers send these parts instead of Content.
	ContentParts []ContentPart `json:"content_parts,omitempty"`

	Refusal string `json:"refusal,omitempty"` // If model refuses to respond (safety/policy)
}

// NewUserMessage builds a user message with the given text and optional extra parts.
// The text part always comes first.
func NewUserMessage(text string, parts ...ContentPart) Message {
	if len(parts) == 0 {
		return Message{Role: RoleUser, Content: text}
	}
	all := make([]ContentPart, 0, len(parts)+1)
	all = append(all, NewTextPart(text))
	all = append(all, parts...)
	return Message{Role: RoleUser, Content: text, ContentParts: all}
}

// HasMultimodalContent reports whether the message carries non-text parts.
func (m Message) HasMultimodalContent() bool {
	for _, p := range m.ContentParts {
		if p.Type != ContentTypeText {
			return true
		}
	}
	return false
}

type GenerationConfig struct {
	MaxTokens        int      `json:"max_tokens,omitempty"`        // Optional max tokens for the response
	Temperature      *float32 `json:"temperature,omitempty"`       // Sampling temperature [0..2]. nil means provider default; 0 is a valid value.
	TopP             float32  `json:"top_p,omitempty"`             // Nucleus (top-p) sampling [0..1].
	FrequencyPenalty float32  `json:"frequency_penalty,omitempty"` // OpenAI only: Penalty [-2..2]. Positive values reduce repetition.
	PresencePenalty  float32  `json:"presence_penalty,omitempty"`  // OpenAI only: Penalty [-2..2]. Positive values encourage new topics.
	N                int      `json:"n,omitempty"`                 // OpenAI only: number of choices to generate
}

type ResponseFormat struct {
	OutputSchema *jsonschema.Schema `json:"output_schema,omitempty"` // Optional schema for structured response. Implementation may vary by provider.
	Type         string             `json:"type,omitempty"`          // "text|json_object"
}

/*
	##### MULTIMODAL CONTENT #####
*/

// ContentType identifies the kind of payload a ContentPart carries.
type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeImage    ContentType = "image"
	ContentTypeAudio    ContentType = "audio"
	ContentTypeDocument ContentType = "document"
)

// MediaData holds inline (base64) or referenced media.
type MediaData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data,omitempty"` // base64, no data: prefix
	URI      string `json:"uri,omitempty"`
}

// DataURL renders inline media as a data URL, or returns the URI as is.
func (d MediaData) DataURL() string {
	if d.URI != "" {
		return d.URI
	}
	return "data:" + d.MimeType + ";base64," + d.Data
}

// ContentPart is one element of a multimodal message.
type ContentPart struct {
	Type     ContentType `json:"type"`
	Text     string      `json:"text,omitempty"`
	Image    *MediaData  `json:"image,omitempty"`
	Audio    *MediaData  `json:"audio,omitempty"`
	Document *MediaData  `json:"document,omitempty"`
}

func NewTextPart(text string) ContentPart {
	return ContentPart{Type: ContentTypeText, Text: text}
}

// NewImagePart builds an inline image part from base64 data.
func NewImagePart(mimeType, base64Data string) ContentPart {
	return ContentPart{Type: ContentTypeImage, Image: &MediaData{MimeType: mimeType, Data: base64Data}}
}

// NewImagePartFromBytes base64-encodes raw image bytes.
func NewImagePartFromBytes(mimeType string, data []byte) ContentPart {
	return NewImagePart(mimeType, base64.StdEncoding.EncodeToString(data))
}

func NewImagePartFromURI(mimeType, uri string) ContentPart {
	return ContentPart{Type: ContentTypeImage, Image: &MediaData{MimeType: mimeType, URI: uri}}
}

func NewAudioPart(mimeType, base64Data string) ContentPart {
	return ContentPart{Type: ContentTypeAudio, Audio: &MediaData{MimeType: mimeType, Data: base64Data}}
}

// NewDocumentPartFromBytes base64-encodes a document such as a PDF.
func NewDocumentPartFromBytes(mimeType string, data []byte) ContentPart {
	return ContentPart{Type: ContentTypeDocument, Document: &MediaData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}}
}

// Media returns the media payload of a non-text part, or nil.
func (p ContentPart) Media() *MediaData {
	switch p.Type {
	case ContentTypeImage:
		return p.Image
	case ContentTypeAudio:
		return p.Audio
	case ContentTypeDocument:
		return p.Document
	}
	return nil
}

// IsEmpty reports whether the part has nothing to send.
func (p ContentPart) IsEmpty() bool {
	if p.Type == ContentTypeText {
		return strings.TrimSpace(p.Text) == ""
	}
	m := p.Media()
	return m == nil || (m.Data == "" && m.URI == "")
}

/*
	##### PROVIDER OUTPUT #####
*/

type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ChatResponse represents the response from a chat completion
type ChatResponse struct {
	Id           string `json:"id"`
	Model        string `json:"model"`
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`

	// Choices holds every generated alternative when more than one was requested.
	// Content always equals Choices[0] when Choices is set.
	Choices []string `json:"choices,omitempty"`

	Refusal string `json:"refusal,omitempty"` // If model refuses to respond (safety/policy)
}

/*
	##### ENUMS #####
*/

// MessageRole represents the role of a message; compatible with string
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // System instructions/configuration
	RoleUser      MessageRole = "user"      // End-user message
	RoleAssistant MessageRole = "assistant" // Middle llm response
)
