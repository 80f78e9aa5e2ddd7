package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// StepFunc is one unit of work. It may read and modify state.
type StepFunc[S any] func(ctx context.Context, state *S) error

// StepError reports the step that stopped the chain. Index is zero based.
type StepError struct {
	Index int
	Name  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %v", e.Index+1, e.Name, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Observer is notified around every step. Both callbacks are optional.
type Observer struct {
	OnStart func(index int, name string)
	OnDone  func(index int, name string, elapsed time.Duration, err error)
}

// Option configures a Chain.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	observer Observer
}

// WithLogger logs every step at debug level and the failing one at warn.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithObserver registers progress callbacks, typically used by CLIs to print
// "Transcribing..." style messages.
func WithObserver(observer Observer) Option {
	return func(c *config) {
		c.observer = observer
	}
}

type step[S any] struct {
	name string
	fn   StepFunc[S]
}

// Chain is an ordered list of steps over a state of type S.
type Chain[S any] struct {
	steps       []step[S]
	config      config
	buildErrors []error
}

// New creates an empty chain.
func New[S any](opts ...Option) *Chain[S] {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Chain[S]{config: cfg}
}

// Step appends a step. Names must be unique and fn must not be nil; mistakes
// are reported by Run before any step executes.
func (c *Chain[S]) Step(name string, fn StepFunc[S]) *Chain[S] {
	switch {
	case name == "":
		c.buildErrors = append(c.buildErrors, fmt.Errorf("step %d has no name", len(c.steps)+1))
	case fn == nil:
		c.buildErrors = append(c.buildErrors, fmt.Errorf("step %q has no function", name))
	default:
		for _, existing := range c.steps {
			if existing.name == name {
				c.buildErrors = append(c.buildErrors, fmt.Errorf("duplicate step name %q", name))
				return c
			}
		}
	}
	c.steps = append(c.steps, step[S]{name: name, fn: fn})
	return c
}

// Len returns the number of steps.
func (c *Chain[S]) Len() int {
	return len(c.steps)
}

// Names lists the step names in execution order.
func (c *Chain[S]) Names() []string {
	names := make([]string, len(c.steps))
	for i, s := range c.steps {
		names[i] = s.name
	}
	return names
}

// Run executes the steps in order. It returns the first step failure as a
// *StepError, or a plain error when the chain is misconfigured or state is nil.
// A cancelled context stops the chain before the next step starts.
func (c *Chain[S]) Run(ctx context.Context, state *S) error {
	if len(c.buildErrors) > 0 {
		return fmt.Errorf("invalid chain: %w", errors.Join(c.buildErrors...))
	}
	if state == nil {
		return errors.New("chain state must not be nil")
	}

	for i, s := range c.steps {
		if err := ctx.Err(); err != nil {
			return &StepError{Index: i, Name: s.name, Err: err}
		}

		if c.config.observer.OnStart != nil {
			c.config.observer.OnStart(i, s.name)
		}
		c.config.logger.Debug("chain step started", "step", s.name, "index", i)

		start := time.Now()
		err := s.fn(ctx, state)
		elapsed := time.Since(start)

		if c.config.observer.OnDone != nil {
			c.config.observer.OnDone(i, s.name, elapsed, err)
		}
		if err != nil {
			c.config.logger.Warn("chain step failed", "step", s.name, "index", i, "elapsed", elapsed, "error", err)
			return &StepError{Index: i, Name: s.name, Err: err}
		}
		c.config.logger.Debug("chain step completed", "step", s.name, "index", i, "elapsed", elapsed)
	}
	return nil
}
