package memory

import (
	"context"

	"github.com/leofalp/aitasks/providers/ai"
)

// Provider stores the ordered history of one conversation.
//
// Implementations keep messages in chronological order and never reorder or
// remove them. A system message may only be stored as the very first entry.
type Provider interface {
	// AppendMessage adds message at the end of the history. It fails with an
	// *ai.ValidationError when a system message would not be first.
	AppendMessage(ctx context.Context, message *ai.Message) error

	// AllMessages returns a copy of the history.
	AllMessages(ctx context.Context) ([]ai.Message, error)

	// Count returns the number of stored messages.
	Count(ctx context.Context) (int, error)
}
