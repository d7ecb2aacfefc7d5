package ai

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestFormatIncentiveTruncatesLongDescriptions(t *testing.T) {
	description := strings.Repeat("a", 400)
	incentive := &models.Incentive{Title: "Apoio", Description: &description}

	text := FormatIncentive(incentive)

	assert.Contains(t, text, strings.Repeat("a", 300)+"...")
	assert.NotContains(t, text, strings.Repeat("a", 301))
}

func TestFormatIncentiveIncludesStructuredFields(t *testing.T) {
	raw, err := json.Marshal(models.StructuredDescription{
		Objective:       "Apoiar a digitalização",
		TargetSectors:   []string{"tecnologia", "indústria"},
		FundingType:     models.FundingTypeGrant,
		KeyRequirements: []string{"r1", "r2", "r3", "r4"},
	})
	require.NoError(t, err)

	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	budget := 1500000.0
	incentive := &models.Incentive{
		Title:                 "Portugal 2030",
		StructuredDescription: raw,
		DateStart:             &start,
		TotalBudget:           &budget,
	}

	text := FormatIncentive(incentive)

	assert.Contains(t, text, "Title: Portugal 2030")
	assert.Contains(t, text, "Objective: Apoiar a digitalização")
	assert.Contains(t, text, "Target Sectors: tecnologia, indústria")
	assert.Contains(t, text, "Funding Type: grant")
	// only the first three requirements make it into the prompt
	assert.Contains(t, text, "Requirements: r1, r2, r3")
	assert.NotContains(t, text, "r4")
	assert.Contains(t, text, "Period: 2024-01-15 to N/A")
	assert.Contains(t, text, "Budget: 1500000.00")
}

func TestFormatIncentiveSkipsMalformedStructuredMetadata(t *testing.T) {
	incentive := &models.Incentive{
		Title:                 "Apoio",
		StructuredDescription: json.RawMessage(`{nope`),
	}

	text := FormatIncentive(incentive)
	assert.Equal(t, "Title: Apoio", text)
}

func TestBuildMatchingPromptNumbersCandidates(t *testing.T) {
	sector := "Tecnologia"
	incentive := &models.Incentive{ID: 1, Title: "Apoio"}
	candidates := []models.Candidate{
		{Company: models.Company{ID: 10, Name: "Alpha", CAEPrimaryLabel: &sector}, Similarity: 0.912},
		{Company: models.Company{ID: 20, Name: "Beta"}, Similarity: 0.85},
	}

	prompt := BuildMatchingPrompt(incentive, candidates, 5)

	assert.Contains(t, prompt, "Company 1 (Vector Similarity: 0.912):")
	assert.Contains(t, prompt, "Company 2 (Vector Similarity: 0.850):")
	assert.Contains(t, prompt, "Name: Alpha")
	assert.Contains(t, prompt, "Sector: Tecnologia")
	// missing fields render as explicit placeholders
	assert.Contains(t, prompt, "Sector: Not specified")
	assert.Contains(t, prompt, "Website: Not available")
	assert.Contains(t, prompt, "rank these 2 pre-filtered companies")
	assert.Contains(t, prompt, "TOP 5 best matches")
}
