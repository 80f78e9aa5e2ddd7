package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leofalp/aitasks/core/client"
	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Sender is the part of a chat client used by the fan-out.
// *client.Client satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, prompt string, opts ...client.SendMessageOption) (*ai.ChatResponse, error)
}

// Target is one named destination of the fan-out.
type Target struct {
	Name   string
	Client Sender
}

// Slot is the outcome for one target. Exactly one of Response and Err is set.
type Slot struct {
	Name     string
	Response *ai.ChatResponse
	Err      error
	Elapsed  time.Duration
}

// OK reports whether the target answered.
func (s Slot) OK() bool {
	return s.Err == nil && s.Response != nil
}

// Option configures Run.
type Option func(*options)

type options struct {
	limit    int
	logger   *slog.Logger
	callOpts []client.SendMessageOption
}

// WithLimit caps the number of requests in flight. Zero or less means one
// goroutine per target.
func WithLimit(n int) Option {
	return func(o *options) {
		o.limit = n
	}
}

// WithLogger reports each finished target at debug level and failures at warn.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSendOptions forwards per-call options to every client.
func WithSendOptions(opts ...client.SendMessageOption) Option {
	return func(o *options) {
		o.callOpts = append(o.callOpts, opts...)
	}
}

// Run sends prompt to every target concurrently and waits for all of them.
// The returned error is non-nil only for invalid input, in which case no
// request is made. Per-target failures are reported in the slots.
func Run(ctx context.Context, prompt string, targets []Target, opts ...Option) ([]Slot, error) {
	if utils.IsBlank(prompt) {
		return nil, ai.NewValidationError("prompt", "must not be empty")
	}
	if len(targets) == 0 {
		return nil, ai.NewValidationError("targets", "at least one provider is required")
	}
	for i, t := range targets {
		if t.Client == nil {
			return nil, ai.NewValidationError("targets", "target %d (%s) has no client", i, t.Name)
		}
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	slots := make([]Slot, len(targets))

	// Failures stay in their slot; the group itself never sees an error.
	var group errgroup.Group
	if o.limit > 0 {
		group.SetLimit(o.limit)
	}

	for i, target := range targets {
		group.Go(func() error {
			slots[i] = send(ctx, target, prompt, o.callOpts)
			if slots[i].Err != nil {
				logger.Warn("provider failed", "provider", target.Name, "elapsed", slots[i].Elapsed, "error", slots[i].Err)
			} else {
				logger.Debug("provider answered", "provider", target.Name, "elapsed", slots[i].Elapsed)
			}
			return nil
		})
	}
	_ = group.Wait()

	return slots, nil
}

func send(ctx context.Context, target Target, prompt string, callOpts []client.SendMessageOption) (slot Slot) {
	slot.Name = target.Name
	start := time.Now()
	defer func() {
		slot.Elapsed = time.Since(start)
		if r := recover(); r != nil {
			slot.Response = nil
			slot.Err = fmt.Errorf("provider %s panicked: %v", target.Name, r)
		}
	}()

	resp, err := target.Client.SendMessage(ctx, prompt, callOpts...)
	if err != nil {
		slot.Err = err
		return slot
	}
	slot.Response = resp
	return slot
}

// Failed returns the slots that carry an error.
func Failed(slots []Slot) []Slot {
	return lo.Filter(slots, func(s Slot, _ int) bool {
		return s.Err != nil
	})
}
