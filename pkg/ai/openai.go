package ai

import (
	"context"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Per-million-token pricing. Unknown models fall back to gpt-4.1-mini rates,
// which keeps cost tracking advisory rather than blocking.
var modelPricing = map[string]struct{ input, output float64 }{
	"gpt-4.1":                {input: 2.00, output: 8.00},
	"gpt-4.1-mini":           {input: 0.40, output: 1.60},
	"gpt-4.1-nano":           {input: 0.10, output: 0.40},
	"gpt-4o":                 {input: 2.50, output: 10.00},
	"gpt-4o-mini":            {input: 0.15, output: 0.60},
	"text-embedding-3-small": {input: 0.02, output: 0},
	"text-embedding-3-large": {input: 0.13, output: 0},
}

const defaultPricingModel = "gpt-4.1-mini"

// OpenAIClient implements Completer against any OpenAI-compatible endpoint.
// Every call waits on the shared limiter before reaching the provider.
type OpenAIClient struct {
	client  *openai.LLM
	model   string
	limiter *Limiter
	logger  ectologger.Logger
}

type OpenAIOptions struct {
	BaseURL string
	APIKey  string
	Model   string
}

func NewOpenAIClient(opts OpenAIOptions, limiter *Limiter, logger ectologger.Logger) (*OpenAIClient, error) {
	clientOpts := []openai.Option{
		openai.WithToken(opts.APIKey),
		openai.WithModel(opts.Model),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(opts.BaseURL))
	}

	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, err
	}

	return &OpenAIClient{
		client:  client,
		model:   opts.Model,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Complete issues a single chat completion and returns the text plus usage.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ai.Complete")
	defer span.End()

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	content := make([]llms.MessageContent, 0, 2)
	if req.SystemPrompt != "" {
		content = append(content, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(req.SystemPrompt)},
		})
	}
	content = append(content, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(req.Prompt)},
	})

	callOpts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.JSONMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	response, err := c.client.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Error("completion request failed")
		return nil, err
	}

	if len(response.Choices) < 1 {
		c.logger.WithContext(ctx).Warn("completion returned no choices")
		return &CompletionResult{}, nil
	}

	choice := response.Choices[0]
	usage := c.usageFromGenerationInfo(choice.GenerationInfo)

	return &CompletionResult{
		Content: stripCodeFences(choice.Content),
		Usage:   usage,
	}, nil
}

func (c *OpenAIClient) usageFromGenerationInfo(info map[string]any) Usage {
	usage := Usage{
		PromptTokens:     intFromInfo(info, "PromptTokens"),
		CompletionTokens: intFromInfo(info, "CompletionTokens"),
		TotalTokens:      intFromInfo(info, "TotalTokens"),
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	usage.Cost = CalculateCost(c.model, usage.PromptTokens, usage.CompletionTokens)
	return usage
}

// CalculateCost converts token counts into dollars using the pricing table.
func CalculateCost(model string, promptTokens, completionTokens int) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		pricing = modelPricing[defaultPricingModel]
	}
	return float64(promptTokens)/1_000_000*pricing.input +
		float64(completionTokens)/1_000_000*pricing.output
}

func intFromInfo(info map[string]any, key string) int {
	if info == nil {
		return 0
	}
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// stripCodeFences removes markdown fences models sometimes wrap JSON in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
