package cost

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/leofalp/aitasks/providers/ai"
)

// ModelCost is the per-token pricing of a chat model, in USD.
type ModelCost struct {
	InputCostPerMillion  float64 `json:"input_cost_per_million"`
	OutputCostPerMillion float64 `json:"output_cost_per_million"`
}

// Calculate returns the cost of usage.
func (mc ModelCost) Calculate(usage ai.Usage) float64 {
	return float64(usage.PromptTokens)/1_000_000.0*mc.InputCostPerMillion +
		float64(usage.CompletionTokens)/1_000_000.0*mc.OutputCostPerMillion
}

func (mc ModelCost) String() string {
	return fmt.Sprintf("Input: $%.6f/M, Output: $%.6f/M", mc.InputCostPerMillion, mc.OutputCostPerMillion)
}

// Prices are list prices of the chat models the programs use by default.
var Prices = map[string]ModelCost{
	"gpt-4o":                     {InputCostPerMillion: 2.50, OutputCostPerMillion: 10.00},
	"gpt-4o-mini":                {InputCostPerMillion: 0.15, OutputCostPerMillion: 0.60},
	"claude-3-5-sonnet-20240620": {InputCostPerMillion: 3.00, OutputCostPerMillion: 15.00},
	"command-r-plus":             {InputCostPerMillion: 2.50, OutputCostPerMillion: 10.00},
	"gemini-1.5-flash":           {InputCostPerMillion: 0.075, OutputCostPerMillion: 0.30},
}

// ForModel returns the price of model. The longest price key that model
// starts with wins, so dated snapshots use the price of their family.
func ForModel(model string) (ModelCost, bool) {
	model = strings.ToLower(strings.TrimSpace(model))
	if mc, ok := Prices[model]; ok {
		return mc, true
	}
	best := ""
	for key := range Prices {
		if strings.HasPrefix(model, key+"-") && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return ModelCost{}, false
	}
	return Prices[best], true
}

// ModelUsage is the tally of one model.
type ModelUsage struct {
	Model    string   `json:"model"`
	Requests int      `json:"requests"`
	Usage    ai.Usage `json:"usage"`
	// Cost is zero when the model has no known price.
	Cost   float64 `json:"cost"`
	Priced bool    `json:"priced"`
}

// Summary is the state of a tracker at one point in time.
type Summary struct {
	Models    []ModelUsage `json:"models"`
	Requests  int          `json:"requests"`
	Usage     ai.Usage     `json:"usage"`
	TotalCost float64      `json:"total_cost"`
	Currency  string       `json:"currency"`
	// Unpriced lists models whose cost is missing from TotalCost.
	Unpriced []string `json:"unpriced,omitempty"`
}

// Tracker accumulates usage per model. It is safe for concurrent use, since
// fan-out clients record from several goroutines. A nil *Tracker ignores
// every call.
type Tracker struct {
	mu     sync.Mutex
	models map[string]*ModelUsage
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{models: make(map[string]*ModelUsage)}
}

// Record adds one response of model. Responses without usage still count as
// requests.
func (t *Tracker) Record(model string, usage *ai.Usage) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.models[model]
	if !ok {
		_, priced := ForModel(model)
		m = &ModelUsage{Model: model, Priced: priced}
		t.models[model] = m
	}
	m.Requests++
	if usage == nil {
		return
	}
	m.Usage.PromptTokens += usage.PromptTokens
	m.Usage.CompletionTokens += usage.CompletionTokens
	m.Usage.TotalTokens += usage.TotalTokens
}

// Summary returns the totals with models sorted by name.
func (t *Tracker) Summary() Summary {
	summary := Summary{Currency: "USD"}
	if t == nil {
		return summary
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, m := range t.models {
		mu := *m
		if mc, ok := ForModel(mu.Model); ok {
			mu.Cost = mc.Calculate(mu.Usage)
		} else {
			summary.Unpriced = append(summary.Unpriced, mu.Model)
		}
		summary.Models = append(summary.Models, mu)
		summary.Requests += mu.Requests
		summary.Usage.PromptTokens += mu.Usage.PromptTokens
		summary.Usage.CompletionTokens += mu.Usage.CompletionTokens
		summary.Usage.TotalTokens += mu.Usage.TotalTokens
		summary.TotalCost += mu.Cost
	}
	sort.Slice(summary.Models, func(i, j int) bool { return summary.Models[i].Model < summary.Models[j].Model })
	sort.Strings(summary.Unpriced)
	return summary
}

type contextKey struct{}

// NewContext returns ctx carrying a fresh tracker. An existing tracker is
// reused, so nested commands share one tally.
func NewContext(ctx context.Context) (context.Context, *Tracker) {
	if t := FromContext(ctx); t != nil {
		return ctx, t
	}
	t := NewTracker()
	return context.WithValue(ctx, contextKey{}, t), t
}

// FromContext returns the tracker of ctx, or nil.
func FromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(contextKey{}).(*Tracker)
	return t
}
