// Package input collects the user input of a program from one of several
// sources: command-line arguments, an interactive prompt or recorded audio.
//
// Programs usually combine them with [FirstOf], e.g. "the word given as an
// argument, otherwise ask for it":
//
//	console := input.NewConsole(os.Stdin, os.Stderr)
//	in, err := input.FirstOf(
//	    input.Args(os.Args[1:]),
//	    console.Prompt("Enter a word: "),
//	).Collect(ctx)
package input
