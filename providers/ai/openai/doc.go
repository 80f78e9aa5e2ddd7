// Package openai implements the chat, image, transcription and speech
// provider interfaces, including streamed chat, for the OpenAI API and any OpenAI-compatible server
// (LM Studio, Ollama, vLLM).
//
// [New] reads OPENAI_API_KEY and OPENAI_API_BASE_URL from the environment.
// An empty key is allowed because local compatible servers do not check it.
package openai
