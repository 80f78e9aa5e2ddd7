// Package fanout sends one prompt to several chat clients at once and
// collects every answer, success or failure, in the order the targets were
// given.
//
// A failing provider never cancels the others: its slot carries the error
// and the remaining slots still carry their responses. Run returns once all
// targets have finished, so the wall time is that of the slowest provider.
//
//	slots, err := fanout.Run(ctx, "Explain goroutines", []fanout.Target{
//		{Name: "GPT-4o", Client: gpt},
//		{Name: "Claude 3.5 Sonnet", Client: claude},
//	})
package fanout
