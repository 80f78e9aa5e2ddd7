// Package serper searches Google News through the Serper API.
//
// [New] reads SERPER_API_KEY and SERPER_API_BASE_URL. The key is sent in the
// X-API-KEY header.
package serper
