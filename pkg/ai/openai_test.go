package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateCost(t *testing.T) {
	// gpt-4.1-mini: $0.40 input, $1.60 output per million tokens
	cost := CalculateCost("gpt-4.1-mini", 1_000_000, 1_000_000)
	assert.InDelta(t, 2.00, cost, 0.0001)

	cost = CalculateCost("gpt-4.1-mini", 500_000, 0)
	assert.InDelta(t, 0.20, cost, 0.0001)
}

func TestCalculateCostUnknownModelUsesDefaultPricing(t *testing.T) {
	unknown := CalculateCost("some-future-model", 1_000_000, 1_000_000)
	fallback := CalculateCost(defaultPricingModel, 1_000_000, 1_000_000)
	assert.Equal(t, fallback, unknown)
}

func TestCalculateCostZeroTokens(t *testing.T) {
	assert.Zero(t, CalculateCost("gpt-4.1", 0, 0))
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `[{"a":1}]`, stripCodeFences("```json\n[{\"a\":1}]\n```"))
	assert.Equal(t, `[{"a":1}]`, stripCodeFences("```\n[{\"a\":1}]\n```"))
	assert.Equal(t, `[{"a":1}]`, stripCodeFences(`[{"a":1}]`))
	assert.Equal(t, "", stripCodeFences("```json\n```"))
}

func TestIntFromInfoHandlesNumericTypes(t *testing.T) {
	info := map[string]any{
		"PromptTokens":     100,
		"CompletionTokens": int64(50),
		"TotalTokens":      float64(150),
	}

	assert.Equal(t, 100, intFromInfo(info, "PromptTokens"))
	assert.Equal(t, 50, intFromInfo(info, "CompletionTokens"))
	assert.Equal(t, 150, intFromInfo(info, "TotalTokens"))
	assert.Zero(t, intFromInfo(info, "Missing"))
	assert.Zero(t, intFromInfo(nil, "PromptTokens"))
}
