// Package chain runs a fixed list of steps in order over a shared state.
//
// Each step reads what earlier steps left in the state and adds its own
// result. The first failing step stops the chain: later steps never run and
// the error is returned as a *StepError naming the step. Side effects of the
// steps that completed (files written, for instance) are left in place.
//
// Example:
//
//	type interpretState struct {
//	    Audio       []byte
//	    Original    string
//	    Translation string
//	}
//
//	err := chain.New[interpretState]().
//	    Step("transcribe", transcribe).
//	    Step("translate", translate).
//	    Step("synthesize", synthesize).
//	    Run(ctx, &interpretState{Audio: recording})
package chain
