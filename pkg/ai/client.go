// Package ai wraps the text-generation and embedding capabilities consumed by
// the matching pipeline. All scoring calls are serialized through a shared
// Limiter because the upstream provider enforces a per-minute request budget.
package ai

import "context"

// CompletionRequest is a single text-generation request.
type CompletionRequest struct {
	Prompt       string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	JSONMode     bool
}

// Usage reports token consumption and the derived monetary cost of a call.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost"`
}

// CompletionResult is the generated text plus its usage metrics.
type CompletionResult struct {
	Content string
	Usage   Usage
}

// Completer issues text-generation requests. Cost in the returned usage is
// advisory; callers must never reject otherwise-valid results because of it.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// Embedder turns text into fixed-length vectors.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
