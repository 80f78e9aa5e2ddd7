package inmemory

import (
	"context"
	"sync"

	"github.com/leofalp/aitasks/providers/ai"
	"github.com/leofalp/aitasks/providers/memory"
)

// ArrayMemory is a simple, concurrency-safe in-memory message store.
// It uses RWMutex to guard access and is efficient for read-heavy workloads.
type ArrayMemory struct {
	mu       sync.RWMutex
	messages []ai.Message
}

// New returns a new, empty [ArrayMemory] ready for immediate use.
func New() *ArrayMemory {
	return &ArrayMemory{
		messages: []ai.Message{},
	}
}

// NewWithSystemPrompt returns a store whose first message is the given system prompt.
func NewWithSystemPrompt(prompt string) *ArrayMemory {
	m := New()
	m.messages = append(m.messages, ai.Message{Role: ai.RoleSystem, Content: prompt})
	return m
}

// Ensure ArrayMemory implements memory.Provider at compile time.
var _ memory.Provider = (*ArrayMemory)(nil)

// AppendMessage stores a copy of message at the end of the history.
// It is a no-op when message is nil.
func (m *ArrayMemory) AppendMessage(_ context.Context, message *ai.Message) error {
	if message == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if message.Role == ai.RoleSystem && len(m.messages) > 0 {
		return ai.NewValidationError("message", "system message must be the first message of the conversation")
	}
	m.messages = append(m.messages, *message)
	return nil
}

// Count returns the number of messages stored. The error is always nil.
func (m *ArrayMemory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	n := len(m.messages)
	m.mu.RUnlock()
	return n, nil
}

// AllMessages returns a copy of all messages to avoid external mutation of internal state.
func (m *ArrayMemory) AllMessages(_ context.Context) ([]ai.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ai.Message, len(m.messages))
	copy(out, m.messages)
	return out, nil
}

// SystemPrompt returns the leading system message content, if any.
func (m *ArrayMemory) SystemPrompt() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.messages) > 0 && m.messages[0].Role == ai.RoleSystem {
		return m.messages[0].Content
	}
	return ""
}
