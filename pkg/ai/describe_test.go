package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeCompleter struct {
	content string
	cost    float64
	err     error
	lastReq CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &CompletionResult{Content: f.content, Usage: Usage{Cost: f.cost}}, nil
}

func silentLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestGenerateParsesStructuredDescription(t *testing.T) {
	completer := &fakeCompleter{
		content: `{"objective":"digitalizar PME","target_sectors":["tecnologia"],"innovation_focus":true}`,
		cost:    0.003,
	}
	generator := NewDescriptionGenerator(completer, 0.1, 2000, silentLogger())

	structured, cost, err := generator.Generate(context.Background(), &models.Incentive{ID: 1, Title: "Apoio"})
	require.NoError(t, err)

	assert.Equal(t, "digitalizar PME", structured.Objective)
	assert.Equal(t, []string{"tecnologia"}, structured.TargetSectors)
	assert.True(t, structured.InnovationFocus)
	assert.Equal(t, 0.003, cost)
	assert.True(t, completer.lastReq.JSONMode)
}

func TestGenerateParseFailureDegradesToEmptyStructure(t *testing.T) {
	completer := &fakeCompleter{content: "sorry, I cannot do that", cost: 0.001}
	generator := NewDescriptionGenerator(completer, 0.1, 2000, silentLogger())

	structured, cost, err := generator.Generate(context.Background(), &models.Incentive{ID: 1, Title: "Apoio"})
	require.NoError(t, err)
	require.NotNil(t, structured)
	assert.True(t, structured.IsEmpty())
	assert.Equal(t, 0.001, cost)
}

func TestGeneratePropagatesCompletionError(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("provider down")}
	generator := NewDescriptionGenerator(completer, 0.1, 2000, silentLogger())

	_, _, err := generator.Generate(context.Background(), &models.Incentive{ID: 1, Title: "Apoio"})
	assert.Error(t, err)
}
