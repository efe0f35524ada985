package llm

import "strings"

// ModelCost holds per-million-token pricing for a model in USD.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost calculates the total USD cost for the given token counts.
func (c ModelCost) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*c.InputPerMTok/1_000_000 +
		float64(outputTokens)*c.OutputPerMTok/1_000_000
}

// LookupCost returns the pricing for a model ID, or nil if unknown.
// Dated or vendor-prefixed IDs ("gpt-4o-2024-08-06",
// "google/gemini-2.0-flash-001") resolve to the longest known family prefix.
func LookupCost(modelID string) *ModelCost {
	id := modelID
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}

	var (
		best    ModelCost
		bestLen int
	)
	for _, e := range modelCosts {
		if strings.HasPrefix(id, e.prefix) && len(e.prefix) > bestLen {
			best, bestLen = e.cost, len(e.prefix)
		}
	}
	if bestLen == 0 {
		return nil
	}
	return &best
}

// modelCosts lists model families and their list prices.
// Last updated: 2026-02-15.
var modelCosts = []struct {
	prefix string
	cost   ModelCost
}{
	// Anthropic
	{"claude-3-5-haiku", ModelCost{0.8, 4}},
	{"claude-3-5-sonnet", ModelCost{3, 15}},
	{"claude-3-7-sonnet", ModelCost{3, 15}},
	{"claude-haiku-4-5", ModelCost{1, 5}},
	{"claude-sonnet-4", ModelCost{3, 15}},
	{"claude-opus-4", ModelCost{15, 75}},
	{"claude-opus-4-5", ModelCost{5, 25}},

	// OpenAI
	{"gpt-4o", ModelCost{2.5, 10}},
	{"gpt-4o-mini", ModelCost{0.15, 0.6}},
	{"gpt-4.1", ModelCost{2, 8}},
	{"gpt-4.1-mini", ModelCost{0.4, 1.6}},
	{"gpt-4.1-nano", ModelCost{0.1, 0.4}},
	{"gpt-5", ModelCost{1.25, 10}},
	{"gpt-5-mini", ModelCost{0.25, 2}},
	{"gpt-5-nano", ModelCost{0.05, 0.4}},
	{"o3-mini", ModelCost{1.1, 4.4}},
	{"o4-mini", ModelCost{1.1, 4.4}},

	// Google
	{"gemini-1.5-flash", ModelCost{0.075, 0.3}},
	{"gemini-1.5-pro", ModelCost{1.25, 5}},
	{"gemini-2.0-flash", ModelCost{0.1, 0.4}},
	{"gemini-2.0-flash-lite", ModelCost{0.075, 0.3}},
	{"gemini-2.5-flash", ModelCost{0.3, 2.5}},
	{"gemini-2.5-flash-lite", ModelCost{0.1, 0.4}},
	{"gemini-2.5-pro", ModelCost{1.25, 10}},
}
