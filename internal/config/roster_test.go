package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leofalp/aitasks/providers/ai"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRoster(t *testing.T) {
	path := writeRoster(t, `
models:
  - name: GPT-4o
    provider: openai
    model: gpt-4o
    temperature: 0.7
  - name: Gemini Flash
    provider: gemini
    model: gemini-1.5-flash
    max_tokens: 500
  - name: Old model
    provider: cohere
    model: command
    disabled: true
`)

	roster, err := LoadRoster(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roster.Models) != 3 {
		t.Fatalf("expected 3 models, got %d", len(roster.Models))
	}
	if roster.Models[0].Temperature == nil || *roster.Models[0].Temperature != 0.7 {
		t.Errorf("temperature lost: %+v", roster.Models[0])
	}
	if roster.Models[1].MaxTokens != 500 {
		t.Errorf("max_tokens lost: %+v", roster.Models[1])
	}

	enabled := roster.Enabled()
	if len(enabled.Models) != 2 {
		t.Errorf("disabled entries must be dropped, got %+v", enabled.Models)
	}
	if got := enabled.Providers(); len(got) != 2 || got[0] != OpenAI || got[1] != Gemini {
		t.Errorf("unexpected providers %v", got)
	}
}

func TestLoadRoster_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":     "models: []\n",
		"provider":  "models:\n  - {name: A, provider: mistral, model: m}\n",
		"duplicate": "models:\n  - {name: A, provider: openai, model: m}\n  - {name: a, provider: cohere, model: n}\n",
		"range":     "models:\n  - {name: A, provider: openai, model: m, temperature: 3}\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadRoster(writeRoster(t, content)); !ai.IsValidationError(err) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}

	if _, err := LoadRoster(writeRoster(t, "models: [")); err == nil || ai.IsValidationError(err) {
		t.Errorf("expected a parse error, got %v", err)
	}
	if _, err := LoadRoster(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestRoster_Select(t *testing.T) {
	roster := DefaultRoster()
	if err := roster.Validate(); err != nil {
		t.Fatalf("the default roster must be valid: %v", err)
	}

	all, err := roster.Select(nil)
	if err != nil || len(all.Models) != 3 {
		t.Errorf("no names must keep everything, got %+v, %v", all, err)
	}

	subset, err := roster.Select([]string{" claude 3.5 sonnet", "gpt-4o", ""})
	if err != nil {
		t.Fatal(err)
	}
	if len(subset.Models) != 2 || subset.Models[0].Name != "GPT-4o" || subset.Models[1].Provider != Anthropic {
		t.Errorf("selection must keep roster order, got %+v", subset.Models)
	}

	byProvider, _ := roster.Select([]string{"cohere"})
	if len(byProvider.Models) != 1 || byProvider.Models[0].Model != "command-r-plus" {
		t.Errorf("unexpected selection %+v", byProvider.Models)
	}

	if _, err := roster.Select([]string{"llama"}); !ai.IsValidationError(err) {
		t.Errorf("expected ValidationError for an unknown name, got %v", err)
	}
}
