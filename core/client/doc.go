// Package client performs single-turn AI requests on top of an [ai.Provider].
// A [Client] validates input before any network call, assembles the request
// (system prompt, optional conversation history, multimodal parts, generation
// parameters), runs it through the middleware chain and returns the provider
// response. There are no retries: one SendMessage is one provider call.
// [Client.StreamMessage] is the streaming variant; it falls back to a single
// event when the provider cannot stream.
//
// [NewStructured] and [FromBaseClient] wrap a Client for typed JSON output
// decoded with the tolerant strategy of package parse. [GenerateImage],
// [Transcribe] and [Synthesize] apply the same validation contract to the
// media providers.
package client
