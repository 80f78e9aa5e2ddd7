// Package ai defines the shared, provider-agnostic types and interfaces used
// by every provider implementation (OpenAI, Anthropic, Gemini, Cohere,
// Replicate). Each provider's conversion layer maps these types to its own
// wire format, keeping the programs decoupled from provider details.
//
// [Provider] covers chat completions; providers that also implement
// [StreamProvider] deliver replies as a [ChatStream] of deltas. The media interfaces
// [ImageProvider], [TranscriptionProvider] and [SpeechProvider] cover image
// generation, speech-to-text and text-to-speech. Failures are reported as
// [ValidationError] (caught before any network call) or [ProviderError]
// (the provider call itself failed).
package ai
