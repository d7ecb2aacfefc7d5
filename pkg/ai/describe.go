package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// DescriptionGenerator extracts structured metadata from raw incentive text.
// The prefilter funnel reads this metadata, so generation failures degrade to
// an empty structure instead of erroring.
type DescriptionGenerator struct {
	completer   Completer
	temperature float64
	maxTokens   int
	logger      ectologger.Logger
}

func NewDescriptionGenerator(completer Completer, temperature float64, maxTokens int, logger ectologger.Logger) *DescriptionGenerator {
	return &DescriptionGenerator{
		completer:   completer,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger,
	}
}

// Generate produces a structured description for the incentive along with the
// advisory cost of the call. A parse failure returns an empty structure so
// callers can persist something and move on.
func (g *DescriptionGenerator) Generate(ctx context.Context, incentive *models.Incentive) (*models.StructuredDescription, float64, error) {
	ctx, span := tracing.StartSpan(ctx, "ai.GenerateDescription")
	defer span.End()

	result, err := g.completer.Complete(ctx, CompletionRequest{
		Prompt:       BuildStructuredDescriptionPrompt(describeInput(incentive)),
		SystemPrompt: StructuredDescriptionSystemPrompt,
		Temperature:  g.temperature,
		MaxTokens:    g.maxTokens,
		JSONMode:     true,
	})
	if err != nil {
		return nil, 0, err
	}

	var structured models.StructuredDescription
	if err := json.Unmarshal([]byte(result.Content), &structured); err != nil {
		g.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"incentive_id": incentive.ID,
		}).Warn("structured description did not parse, storing empty structure")
		return &models.StructuredDescription{}, result.Usage.Cost, nil
	}

	return &structured, result.Usage.Cost, nil
}

func describeInput(incentive *models.Incentive) string {
	parts := []string{fmt.Sprintf("Title: %s", incentive.Title)}
	if incentive.Description != nil && *incentive.Description != "" {
		parts = append(parts, fmt.Sprintf("Description: %s", *incentive.Description))
	}
	if incentive.AIDescription != nil && *incentive.AIDescription != "" {
		parts = append(parts, fmt.Sprintf("Summary: %s", *incentive.AIDescription))
	}
	return strings.Join(parts, "\n")
}
