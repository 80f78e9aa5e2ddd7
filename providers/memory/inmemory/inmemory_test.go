package inmemory

import (
	"context"
	"sync"
	"testing"

	"github.com/leofalp/aitasks/providers/ai"
)

func TestArrayMemory_AppendKeepsOrder(t *testing.T) {
	ctx := context.Background()
	m := NewWithSystemPrompt("You are a travel writer.")

	for _, msg := range []ai.Message{
		{Role: ai.RoleUser, Content: "Helsinki"},
		{Role: ai.RoleAssistant, Content: "Helsinki is..."},
		{Role: ai.RoleUser, Content: "Turku"},
	} {
		if err := m.AppendMessage(ctx, &msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, _ := m.AllMessages(ctx)
	if len(all) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(all))
	}
	if all[0].Role != ai.RoleSystem {
		t.Errorf("system message must stay first, got %s", all[0].Role)
	}
	if all[3].Content != "Turku" {
		t.Errorf("messages out of order: %+v", all)
	}
	if m.SystemPrompt() != "You are a travel writer." {
		t.Errorf("unexpected system prompt %q", m.SystemPrompt())
	}
}

func TestArrayMemory_RejectsLateSystemMessage(t *testing.T) {
	ctx := context.Background()
	m := New()
	_ = m.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "hi"})

	err := m.AppendMessage(ctx, &ai.Message{Role: ai.RoleSystem, Content: "late"})
	if !ai.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n, _ := m.Count(ctx); n != 1 {
		t.Errorf("rejected message must not be stored, count=%d", n)
	}
}

func TestArrayMemory_SystemFirstOnEmptyStore(t *testing.T) {
	ctx := context.Background()
	m := New()
	if err := m.AppendMessage(ctx, &ai.Message{Role: ai.RoleSystem, Content: "rules"}); err != nil {
		t.Fatalf("system message on empty store must be accepted: %v", err)
	}
	if err := m.AppendMessage(ctx, nil); err != nil {
		t.Errorf("nil message is a no-op, got %v", err)
	}
	if n, _ := m.Count(ctx); n != 1 {
		t.Errorf("expected 1 message, got %d", n)
	}
}

func TestArrayMemory_AllMessagesIsCopy(t *testing.T) {
	ctx := context.Background()
	m := New()
	_ = m.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "original"})

	all, _ := m.AllMessages(ctx)
	all[0].Content = "mutated"

	again, _ := m.AllMessages(ctx)
	if again[0].Content != "original" {
		t.Error("AllMessages must return an independent copy")
	}
}

func TestArrayMemory_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "x"})
		}()
	}
	wg.Wait()

	if n, _ := m.Count(ctx); n != 50 {
		t.Errorf("expected 50 messages, got %d", n)
	}
}
