package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/leofalp/aitasks/core/parse"
	"github.com/leofalp/aitasks/internal/jsonschema"
	"github.com/leofalp/aitasks/providers/ai"
)

// StructuredResult is the typed outcome of a structured call. Warning is set
// when strict decoding failed; Warning.Degraded() means Data came from the
// fallback and the raw text was kept in it.
type StructuredResult[T any] struct {
	Data    T
	Raw     *ai.ChatResponse
	Warning *parse.RecoveryWarning
}

// StructuredClient wraps a base Client and decodes every reply into T.
//
// The JSON schema of T is generated once and rendered into an instruction
// listing every key with its type; the instruction is appended to the system
// prompt of each call. Decoding never fails: replies that are not valid JSON
// go through the tolerant layers of package parse and, as a last resort,
// through the fallback.
//
//	type Entry struct {
//	    Word     string   `json:"word"`
//	    Synonyms []string `json:"synonyms"`
//	}
//
//	entries, _ := client.NewStructured[Entry](provider, client.WithModel("gpt-4o-mini"))
//	res, err := entries.SendMessage(ctx, "Define: sisu")
type StructuredClient[T any] struct {
	*Client
	schema       *jsonschema.Schema
	instructions string
	fallback     func(raw string) T
}

// FromBaseClient creates a structured wrapper around base.
func FromBaseClient[T any](base *Client) *StructuredClient[T] {
	if base == nil {
		return nil
	}
	schema := jsonschema.GenerateJSONSchema[T]()
	base.SetDefaultOutputSchema(schema)
	return &StructuredClient[T]{
		Client:       base,
		schema:       schema,
		instructions: BuildJSONInstructions(schema),
	}
}

// NewStructured creates a base Client with opts and wraps it.
func NewStructured[T any](llmProvider ai.Provider, opts ...func(*ClientOptions)) (*StructuredClient[T], error) {
	base, err := New(llmProvider, opts...)
	if err != nil {
		return nil, err
	}
	return FromBaseClient[T](base), nil
}

// WithFallback sets the builder of degraded results. It receives the raw reply.
func (sc *StructuredClient[T]) WithFallback(fallback func(raw string) T) *StructuredClient[T] {
	sc.fallback = fallback
	return sc
}

// SendMessage performs one call and decodes the reply into T.
func (sc *StructuredClient[T]) SendMessage(ctx context.Context, prompt string, opts ...SendMessageOption) (*StructuredResult[T], error) {
	opts = append([]SendMessageOption{WithInstructions(sc.instructions)}, opts...)

	resp, err := sc.Client.SendMessage(ctx, prompt, opts...)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("response is nil")
	}

	data, warning := parse.Decode(resp.Content, sc.fallback)
	return &StructuredResult[T]{
		Data:    data,
		Raw:     resp,
		Warning: warning,
	}, nil
}

// Schema returns the JSON schema used for structured output.
func (sc *StructuredClient[T]) Schema() *jsonschema.Schema {
	return sc.schema
}

// Instructions returns the system instruction appended to each call.
func (sc *StructuredClient[T]) Instructions() string {
	return sc.instructions
}

// BuildJSONInstructions renders the output contract for schema.
func BuildJSONInstructions(schema *jsonschema.Schema) string {
	var b strings.Builder
	b.WriteString("Respond with a single JSON object and nothing else: no prose, no markdown code fences.\n")
	b.WriteString("The object must contain exactly these keys:\n")
	b.WriteString(jsonschema.Describe(schema))
	b.WriteString("Use [] for lists without items and \"\" for unknown text. Never use null.")
	return b.String()
}
