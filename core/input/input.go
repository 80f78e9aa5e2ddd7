package input

import (
	"context"
	"strings"

	"github.com/leofalp/aitasks/providers/ai"
)

// Input is what a source collected. Text is set for typed input, Audio for
// recordings.
type Input struct {
	Text     string
	Audio    []byte
	MimeType string
	// Origin names the source, e.g. "args", "prompt" or "audio".
	Origin string
}

// Empty reports whether nothing usable was collected.
func (in Input) Empty() bool {
	return strings.TrimSpace(in.Text) == "" && len(in.Audio) == 0
}

// Source produces one Input.
type Source interface {
	Collect(ctx context.Context) (Input, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Input, error)

func (f SourceFunc) Collect(ctx context.Context) (Input, error) {
	return f(ctx)
}

// Args joins the arguments with spaces. No arguments collects an empty Input.
func Args(args []string) Source {
	return SourceFunc(func(context.Context) (Input, error) {
		return Input{Text: strings.TrimSpace(strings.Join(args, " ")), Origin: "args"}, nil
	})
}

// Text is a fixed value, typically a flag.
func Text(value string) Source {
	return SourceFunc(func(context.Context) (Input, error) {
		return Input{Text: strings.TrimSpace(value), Origin: "text"}, nil
	})
}

// FirstOf tries each source in order and returns the first non-empty Input.
// Errors stop the search. When every source is empty the result is a
// validation error.
func FirstOf(sources ...Source) Source {
	return SourceFunc(func(ctx context.Context) (Input, error) {
		for _, src := range sources {
			in, err := src.Collect(ctx)
			if err != nil {
				return Input{}, err
			}
			if !in.Empty() {
				return in, nil
			}
		}
		return Input{}, ai.NewValidationError("input", "no input was provided")
	})
}

// Required wraps src so that an empty Input becomes a validation error on
// the named field.
func Required(field string, src Source) Source {
	return SourceFunc(func(ctx context.Context) (Input, error) {
		in, err := src.Collect(ctx)
		if err != nil {
			return Input{}, err
		}
		if in.Empty() {
			return Input{}, ai.NewValidationError(field, "must not be empty")
		}
		return in, nil
	})
}
