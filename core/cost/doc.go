// Package cost tallies the token usage of the chat calls made during one
// program run and estimates what they cost.
//
// A [Tracker] travels in the context. [core/client] records every response
// into the tracker found there, so a command only has to create one:
//
//	ctx, tracker := cost.NewContext(ctx)
//	...
//	summary := tracker.Summary()
//
// Prices come from [Prices], keyed by model id. Versioned ids such as
// "gpt-4o-mini-2024-07-18" match their base entry.
package cost
