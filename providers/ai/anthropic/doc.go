// Package anthropic implements [ai.Provider] for Anthropic's Messages API.
//
// [New] reads ANTHROPIC_API_KEY and ANTHROPIC_API_BASE_URL. Requests carry the
// key in the x-api-key header together with a pinned anthropic-version.
// Images and PDF documents are sent as base64 content blocks.
package anthropic
