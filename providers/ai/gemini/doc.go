// Package gemini implements [ai.Provider] for Google's Gemini generateContent API.
//
// [New] reads GEMINI_API_KEY and GEMINI_API_BASE_URL. The key travels in the
// x-goog-api-key header. Images and documents are sent as inline data parts,
// and JSON requests set responseMimeType to application/json.
package gemini
