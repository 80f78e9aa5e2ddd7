package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leofalp/aitasks/providers/ai"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// RosterEntry is one chat model taking part in the multi-provider fan-out.
type RosterEntry struct {
	Name        string   `yaml:"name"`
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	Temperature *float32 `yaml:"temperature,omitempty"`
	MaxTokens   int      `yaml:"max_tokens,omitempty"`
	Disabled    bool     `yaml:"disabled,omitempty"`
}

// Roster is the list of models queried by the multi-provider chat.
//
//	models:
//	  - name: GPT-4o
//	    provider: openai
//	    model: gpt-4o
//	  - name: Claude 3.5 Sonnet
//	    provider: anthropic
//	    model: claude-3-5-sonnet-20240620
type Roster struct {
	Models []RosterEntry `yaml:"models"`
}

var chatProviders = []string{OpenAI, Anthropic, Gemini, Cohere}

// DefaultRoster compares GPT-4o, Claude 3.5 Sonnet and Command R+.
func DefaultRoster() Roster {
	return Roster{Models: []RosterEntry{
		{Name: "GPT-4o", Provider: OpenAI, Model: "gpt-4o"},
		{Name: "Claude 3.5 Sonnet", Provider: Anthropic, Model: "claude-3-5-sonnet-20240620"},
		{Name: "Cohere Command R+", Provider: Cohere, Model: "command-r-plus"},
	}}
}

// LoadRoster reads and validates a YAML roster.
func LoadRoster(path string) (Roster, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Roster{}, fmt.Errorf("resolve roster path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster file %q: %w", absPath, err)
	}

	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return Roster{}, fmt.Errorf("parse roster file %q: %w", absPath, err)
	}
	if err := roster.Validate(); err != nil {
		return Roster{}, err
	}
	return roster, nil
}

// Validate checks names, providers and parameter ranges.
func (r Roster) Validate() error {
	if len(r.Models) == 0 {
		return ai.NewValidationError("models", "the roster is empty")
	}
	seen := make(map[string]bool, len(r.Models))
	for i, m := range r.Models {
		if strings.TrimSpace(m.Name) == "" {
			return ai.NewValidationError("models", "entry %d has no name", i)
		}
		key := strings.ToLower(m.Name)
		if seen[key] {
			return ai.NewValidationError("models", "duplicate name %q", m.Name)
		}
		seen[key] = true
		if !lo.Contains(chatProviders, m.Provider) {
			return ai.NewValidationError("models", "%s: unknown provider %q (expected one of %s)", m.Name, m.Provider, strings.Join(chatProviders, ", "))
		}
		if m.Temperature != nil && (*m.Temperature < 0 || *m.Temperature > 2) {
			return ai.NewValidationError("models", "%s: temperature %.2f is outside [0, 2]", m.Name, *m.Temperature)
		}
		if m.MaxTokens < 0 {
			return ai.NewValidationError("models", "%s: max_tokens must not be negative", m.Name)
		}
	}
	return nil
}

// Enabled drops disabled entries.
func (r Roster) Enabled() Roster {
	return Roster{Models: lo.Reject(r.Models, func(m RosterEntry, _ int) bool {
		return m.Disabled
	})}
}

// Select keeps the entries whose name, model or provider matches one of the
// given names, case-insensitively, in roster order. No names keeps every
// enabled entry. Unknown names are a validation error.
func (r Roster) Select(names []string) (Roster, error) {
	enabled := r.Enabled()
	names = lo.Compact(lo.Map(names, func(n string, _ int) string {
		return strings.ToLower(strings.TrimSpace(n))
	}))
	if len(names) == 0 {
		return enabled, nil
	}

	matches := func(m RosterEntry, name string) bool {
		return strings.ToLower(m.Name) == name || strings.ToLower(m.Model) == name || m.Provider == name
	}
	for _, name := range names {
		if !lo.ContainsBy(enabled.Models, func(m RosterEntry) bool { return matches(m, name) }) {
			return Roster{}, ai.NewValidationError("models", "no roster entry matches %q", name)
		}
	}

	return Roster{Models: lo.Filter(enabled.Models, func(m RosterEntry, _ int) bool {
		return lo.ContainsBy(names, func(name string) bool { return matches(m, name) })
	})}, nil
}

// Providers lists the distinct providers used by the roster.
func (r Roster) Providers() []string {
	return lo.Uniq(lo.Map(r.Models, func(m RosterEntry, _ int) string {
		return m.Provider
	}))
}
