package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrClosed is returned when the input stream ended before a line was read.
var ErrClosed = errors.New("input closed")

// Console reads lines from one shared buffered reader so that several
// prompts on the same stream never lose buffered data.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsole creates a console reading from in and writing prompts to out.
// A nil out discards prompts.
func NewConsole(in io.Reader, out io.Writer) *Console {
	if out == nil {
		out = io.Discard
	}
	reader, ok := in.(*bufio.Reader)
	if !ok {
		reader = bufio.NewReader(in)
	}
	return &Console{in: reader, out: out}
}

// Printf writes to the console output.
func (c *Console) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// ReadLine prints label and returns the next line without the trailing
// newline or surrounding spaces. A final line without newline is returned;
// an exhausted stream yields ErrClosed.
func (c *Console) ReadLine(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if label != "" {
		_, _ = io.WriteString(c.out, label)
	}

	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrClosed
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// WaitEnter prints label and blocks until the user presses Enter.
func (c *Console) WaitEnter(ctx context.Context, label string) error {
	_, err := c.ReadLine(ctx, label)
	return err
}

// Confirm asks a yes/no question. Only "y" and "yes" (any case) confirm.
func (c *Console) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := c.ReadLine(ctx, question+" (y/n): ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Choose shows numbered options and returns the index of the chosen one.
// Input outside the list is asked again until a valid number or EOF.
func (c *Console) Choose(ctx context.Context, title string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("no options to choose from")
	}
	c.Printf("%s\n", title)
	for i, opt := range options {
		c.Printf("  %d. %s\n", i+1, opt)
	}
	for {
		answer, err := c.ReadLine(ctx, fmt.Sprintf("Choose 1-%d: ", len(options)))
		if err != nil {
			return 0, err
		}
		var n int
		if _, scanErr := fmt.Sscanf(answer, "%d", &n); scanErr == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		for i, opt := range options {
			if strings.EqualFold(answer, opt) {
				return i, nil
			}
		}
		c.Printf("Invalid choice %q.\n", answer)
	}
}

// Prompt returns a source that asks the user for one line.
func (c *Console) Prompt(label string) Source {
	return SourceFunc(func(ctx context.Context) (Input, error) {
		line, err := c.ReadLine(ctx, label)
		if err != nil {
			return Input{}, err
		}
		return Input{Text: line, Origin: "prompt"}, nil
	})
}
