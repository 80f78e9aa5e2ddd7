package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/leofalp/aitasks/internal/utils"
)

// ValidationError reports missing or malformed input detected before any
// provider call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ProviderError reports a failed provider call: a non-2xx reply, a transport
// failure or a response envelope that could not be understood.
type ProviderError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err as a ProviderError. HTTP status failures keep
// their status code and the provider's own error message when the body
// carries one. An error that already is a ProviderError is returned as is.
func NewProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}

	var statusErr *utils.HTTPStatusError
	if errors.As(err, &statusErr) {
		return &ProviderError{
			Provider:   provider,
			StatusCode: statusErr.StatusCode,
			Message:    extractErrorMessage(statusErr.Body),
			Err:        err,
		}
	}

	return &ProviderError{Provider: provider, Message: err.Error(), Err: err}
}

// NewProviderErrorf reports a malformed or unusable reply.
func NewProviderErrorf(provider, format string, args ...any) error {
	return &ProviderError{Provider: provider, Message: fmt.Sprintf(format, args...)}
}

// extractErrorMessage pulls the human-readable message out of the error
// envelopes used by the supported providers:
//
//	{"error":{"message":"..."}}   OpenAI, Anthropic, Gemini
//	{"message":"..."}             Cohere
//	{"detail":"..."}              Replicate
//	{"error":"..."}               OpenAI-compatible local servers
func extractErrorMessage(body []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Detail  string          `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if len(envelope.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
			var plain string
			if json.Unmarshal(envelope.Error, &plain) == nil && plain != "" {
				return plain
			}
		}
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Detail != "" {
			return envelope.Detail
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response body"
	}
	return utils.TruncateString(msg, 300)
}
