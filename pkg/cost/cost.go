// Package cost provides token usage and spend tracking
package cost

import (
	"strings"
	"sync"
)

// Pricing defines the cost per million tokens for a model
type Pricing struct {
	InputPer1M  float64 // Cost per 1M input tokens in USD
	OutputPer1M float64 // Cost per 1M output tokens in USD
}

// ModelPricing contains pricing for known models
var ModelPricing = map[string]Pricing{
	"claude-sonnet-4-20250514":   {InputPer1M: 3.0, OutputPer1M: 15.0},
	"claude-3-5-sonnet-20241022": {InputPer1M: 3.0, OutputPer1M: 15.0},
	"claude-3-5-haiku-20241022":  {InputPer1M: 0.8, OutputPer1M: 4.0},
	"claude-opus-4-20250514":     {InputPer1M: 15.0, OutputPer1M: 75.0},
}

// Tracker accumulates token usage plus flat research charges across a
// run. Research calls are billed per invocation, not per token.
type Tracker struct {
	model           string
	inputTokens     int64
	outputTokens    int64
	researchCalls   int64
	researchCostUSD float64

	mu sync.Mutex
}

// NewTracker creates a cost tracker. perResearchUSD is the flat cost
// charged for each paid research call.
func NewTracker(model string, perResearchUSD float64) *Tracker {
	return &Tracker{
		model:           model,
		researchCostUSD: perResearchUSD,
	}
}

// AddUsage adds token usage from one oracle call
func (t *Tracker) AddUsage(inputTokens, outputTokens int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTokens += int64(inputTokens)
	t.outputTokens += int64(outputTokens)
}

// AddResearchCall records one paid research invocation
func (t *Tracker) AddResearchCall() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.researchCalls++
}

// Stats contains usage statistics
type Stats struct {
	InputTokens   int64
	OutputTokens  int64
	TotalTokens   int64
	ResearchCalls int64
	TokenCostUSD  float64
	TotalCostUSD  float64
	Model         string
}

// GetStats returns a snapshot of usage and spend
func (t *Tracker) GetStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	tokenCost := t.tokenCost()
	return Stats{
		InputTokens:   t.inputTokens,
		OutputTokens:  t.outputTokens,
		TotalTokens:   t.inputTokens + t.outputTokens,
		ResearchCalls: t.researchCalls,
		TokenCostUSD:  tokenCost,
		TotalCostUSD:  tokenCost + float64(t.researchCalls)*t.researchCostUSD,
		Model:         t.model,
	}
}

// Reset clears the tracker
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTokens = 0
	t.outputTokens = 0
	t.researchCalls = 0
}

// tokenCost calculates token spend (caller must hold lock)
func (t *Tracker) tokenCost() float64 {
	pricing, ok := ModelPricing[t.model]
	if !ok {
		pricing = pricingByPrefix(t.model)
	}

	inputCost := float64(t.inputTokens) * pricing.InputPer1M / 1_000_000
	outputCost := float64(t.outputTokens) * pricing.OutputPer1M / 1_000_000
	return inputCost + outputCost
}

// pricingByPrefix matches unknown model IDs to a pricing family
func pricingByPrefix(model string) Pricing {
	switch {
	case strings.Contains(model, "sonnet"):
		return ModelPricing["claude-sonnet-4-20250514"]
	case strings.Contains(model, "haiku"):
		return ModelPricing["claude-3-5-haiku-20241022"]
	case strings.Contains(model, "opus"):
		return ModelPricing["claude-opus-4-20250514"]
	default:
		return Pricing{}
	}
}
