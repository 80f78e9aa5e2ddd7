// Package cohere implements [ai.Provider] for the Cohere v2 Chat API.
//
// [New] reads COHERE_API_KEY and COHERE_API_BASE_URL.
package cohere
