package client

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/leofalp/aitasks/core/cost"
	"github.com/leofalp/aitasks/internal/jsonschema"
	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai"
	"github.com/leofalp/aitasks/providers/memory"
)

// Client sends single-turn requests to one provider with a fixed configuration.
// With a memory provider attached the client becomes stateful: every
// successful exchange is appended to the history and replayed on the next call.
type Client struct {
	llmProvider ai.Provider
	options     ClientOptions
	send        SendFunc
	stream      StreamFunc
}

// ClientOptions holds the fixed configuration of a Client.
type ClientOptions struct {
	Model            string
	SystemPrompt     string
	Memory           memory.Provider
	GenerationConfig ai.GenerationConfig
	ExtraParams      map[string]any
	Middlewares      []MiddlewareConfig

	// DefaultOutputSchema is attached to every request unless overridden per call.
	DefaultOutputSchema *jsonschema.Schema
}

// WithModel sets the provider model identifier.
func WithModel(model string) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.Model = model
	}
}

// WithSystemPrompt sets the system instruction. With a memory attached it is
// stored as the first history message.
func WithSystemPrompt(prompt string) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.SystemPrompt = prompt
	}
}

// WithMemory makes the client stateful.
func WithMemory(m memory.Provider) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.Memory = m
	}
}

// WithTemperature sets the sampling temperature, valid range [0,2].
func WithTemperature(t float32) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.GenerationConfig.Temperature = utils.Ptr(t)
	}
}

// WithMaxOutputTokens caps the response length. Zero means provider default.
func WithMaxOutputTokens(n int) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.GenerationConfig.MaxTokens = n
	}
}

// WithGenerationConfig replaces the whole generation configuration.
func WithGenerationConfig(cfg ai.GenerationConfig) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.GenerationConfig = cfg
	}
}

// WithExtraParams merges provider-specific fields into every request body.
func WithExtraParams(params map[string]any) func(*ClientOptions) {
	return func(o *ClientOptions) {
		if o.ExtraParams == nil {
			o.ExtraParams = map[string]any{}
		}
		maps.Copy(o.ExtraParams, params)
	}
}

// WithMiddleware appends middlewares; the first one given is the outermost.
func WithMiddleware(middlewares ...MiddlewareConfig) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.Middlewares = append(o.Middlewares, middlewares...)
	}
}

// New creates a Client. It fails when the provider is nil, a middleware has a
// nil Send, or the generation parameters are out of range.
func New(llmProvider ai.Provider, opts ...func(*ClientOptions)) (*Client, error) {
	if llmProvider == nil {
		return nil, errors.New("llm provider must not be nil")
	}

	options := ClientOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	for i, mw := range options.Middlewares {
		if mw.Send == nil {
			return nil, fmt.Errorf("middleware at index %d has a nil Send function", i)
		}
	}

	if err := validateGenerationConfig(options.GenerationConfig); err != nil {
		return nil, err
	}

	if options.Memory != nil && options.SystemPrompt != "" {
		if err := seedSystemPrompt(context.Background(), options.Memory, options.SystemPrompt); err != nil {
			return nil, err
		}
	}

	return &Client{
		llmProvider: llmProvider,
		options:     options,
		send:        buildSendChain(llmProvider, options.Middlewares),
		stream:      buildStreamChain(llmProvider, options.Middlewares),
	}, nil
}

// Provider returns the underlying provider.
func (c *Client) Provider() ai.Provider {
	return c.llmProvider
}

// Memory returns the attached history, or nil for a stateless client.
func (c *Client) Memory() memory.Provider {
	return c.options.Memory
}

// SetDefaultOutputSchema attaches schema to every subsequent request.
func (c *Client) SetDefaultOutputSchema(schema *jsonschema.Schema) {
	c.options.DefaultOutputSchema = schema
}

// SendMessage validates prompt and the call options, then performs exactly one
// provider call. Validation failures return *ai.ValidationError without any
// network traffic; provider failures return *ai.ProviderError.
func (c *Client) SendMessage(ctx context.Context, prompt string, opts ...SendMessageOption) (*ai.ChatResponse, error) {
	userMessage, request, err := c.prepare(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}

	response, err := c.send(ctx, request)
	if err != nil {
		return nil, err
	}
	if response == nil {
		return nil, ai.NewProviderErrorf("client", "provider returned no response")
	}

	if err := c.complete(ctx, request, userMessage, response); err != nil {
		return nil, err
	}
	return response, nil
}

// StreamMessage is SendMessage with the reply delivered as it is generated.
// Providers without native streaming deliver the whole reply as one event.
// Once the stream ends normally, usage is recorded and, with a memory
// attached, the prompt and the assembled reply are appended to the history;
// a failure to store them is yielded as the last error. A stream that is
// abandoned early or fails leaves the history untouched.
func (c *Client) StreamMessage(ctx context.Context, prompt string, opts ...SendMessageOption) (*ai.ChatStream, error) {
	userMessage, request, err := c.prepare(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}

	stream, err := c.stream(ctx, request)
	if err != nil {
		return nil, err
	}
	if stream == nil {
		return nil, ai.NewProviderErrorf("client", "provider returned no stream")
	}

	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		var acc ai.StreamAccumulator
		for event, err := range stream.Iter() {
			if err != nil {
				yield(event, err)
				return
			}
			acc.Add(event)
			if !yield(event, nil) {
				return
			}
		}
		if err := c.complete(ctx, request, userMessage, acc.Response()); err != nil {
			yield(ai.StreamEvent{}, err)
		}
	}), nil
}

// prepare validates the prompt and call options and builds the request.
func (c *Client) prepare(ctx context.Context, prompt string, opts []SendMessageOption) (ai.Message, ai.ChatRequest, error) {
	if utils.IsBlank(prompt) {
		return ai.Message{}, ai.ChatRequest{}, ai.NewValidationError("prompt", "must not be empty")
	}

	callOpts := &sendMessageOptions{}
	for _, opt := range opts {
		opt(callOpts)
	}
	for i, part := range callOpts.parts {
		if part.IsEmpty() {
			return ai.Message{}, ai.ChatRequest{}, ai.NewValidationError(string(part.Type), "attachment %d has no data", i)
		}
	}

	genConfig := c.options.GenerationConfig
	if callOpts.generationConfig != nil {
		genConfig = *callOpts.generationConfig
	}
	if err := validateGenerationConfig(genConfig); err != nil {
		return ai.Message{}, ai.ChatRequest{}, err
	}

	userMessage := ai.NewUserMessage(prompt, callOpts.parts...)
	request, err := c.buildRequest(ctx, userMessage, genConfig, callOpts)
	if err != nil {
		return ai.Message{}, ai.ChatRequest{}, err
	}
	return userMessage, request, nil
}

// complete records usage and stores the exchange in memory.
func (c *Client) complete(ctx context.Context, request ai.ChatRequest, userMessage ai.Message, response *ai.ChatResponse) error {
	cost.FromContext(ctx).Record(utils.FirstNonEmpty(request.Model, response.Model), response.Usage)

	if c.options.Memory == nil {
		return nil
	}
	if err := c.options.Memory.AppendMessage(ctx, &userMessage); err != nil {
		return fmt.Errorf("failed to store user message: %w", err)
	}
	if err := c.options.Memory.AppendMessage(ctx, &ai.Message{Role: ai.RoleAssistant, Content: response.Content}); err != nil {
		return fmt.Errorf("failed to store assistant message: %w", err)
	}
	return nil
}

func (c *Client) buildRequest(ctx context.Context, userMessage ai.Message, genConfig ai.GenerationConfig, callOpts *sendMessageOptions) (ai.ChatRequest, error) {
	systemPrompt := c.options.SystemPrompt
	var messages []ai.Message

	if c.options.Memory != nil {
		history, err := c.options.Memory.AllMessages(ctx)
		if err != nil {
			return ai.ChatRequest{}, fmt.Errorf("failed to read conversation history: %w", err)
		}
		if len(history) > 0 && history[0].Role == ai.RoleSystem {
			systemPrompt = history[0].Content
			history = history[1:]
		}
		messages = append(messages, history...)
	}
	messages = append(messages, userMessage)

	if callOpts.instructions != "" {
		if systemPrompt != "" {
			systemPrompt += "\n\n"
		}
		systemPrompt += callOpts.instructions
	}

	request := ai.ChatRequest{
		Model:        c.options.Model,
		Messages:     messages,
		SystemPrompt: systemPrompt,
		ExtraParams:  c.options.ExtraParams,
	}
	if genConfig != (ai.GenerationConfig{}) {
		request.GenerationConfig = &genConfig
	}

	schema := c.options.DefaultOutputSchema
	if callOpts.outputSchema != nil {
		schema = callOpts.outputSchema
	}
	if schema != nil || callOpts.jsonResponse {
		request.ResponseFormat = &ai.ResponseFormat{Type: "json_object", OutputSchema: schema}
	}

	return request, nil
}

func validateGenerationConfig(cfg ai.GenerationConfig) error {
	if cfg.Temperature != nil && (*cfg.Temperature < 0 || *cfg.Temperature > 2) {
		return ai.NewValidationError("temperature", "%.2f is outside [0, 2]", *cfg.Temperature)
	}
	if cfg.MaxTokens < 0 {
		return ai.NewValidationError("max_output_tokens", "must not be negative, got %d", cfg.MaxTokens)
	}
	if cfg.TopP < 0 || cfg.TopP > 1 {
		return ai.NewValidationError("top_p", "%.2f is outside [0, 1]", cfg.TopP)
	}
	if cfg.PresencePenalty < -2 || cfg.PresencePenalty > 2 {
		return ai.NewValidationError("presence_penalty", "%.2f is outside [-2, 2]", cfg.PresencePenalty)
	}
	if cfg.FrequencyPenalty < -2 || cfg.FrequencyPenalty > 2 {
		return ai.NewValidationError("frequency_penalty", "%.2f is outside [-2, 2]", cfg.FrequencyPenalty)
	}
	if cfg.N < 0 {
		return ai.NewValidationError("n", "must not be negative, got %d", cfg.N)
	}
	return nil
}

func seedSystemPrompt(ctx context.Context, m memory.Provider, prompt string) error {
	count, err := m.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to read conversation history: %w", err)
	}
	if count > 0 {
		return nil
	}
	return m.AppendMessage(ctx, &ai.Message{Role: ai.RoleSystem, Content: prompt})
}
