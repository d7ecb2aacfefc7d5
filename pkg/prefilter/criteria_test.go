package prefilter

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestExtractCriteriaPrefersStructuredDescription(t *testing.T) {
	raw, err := json.Marshal(models.StructuredDescription{
		TargetSectors:      []string{"tecnologia"},
		TargetRegions:      []string{"norte"},
		EligibleActivities: []string{"desenvolvimento de software"},
		KeyRequirements:    []string{"PME certificada"},
		InnovationFocus:    true,
	})
	require.NoError(t, err)

	incentive := &models.Incentive{
		ID:                    1,
		Title:                 "Apoio à inovação",
		StructuredDescription: raw,
	}

	criteria := ExtractCriteria(incentive)

	assert.Equal(t, []string{"tecnologia"}, criteria.TargetSectors)
	assert.Equal(t, []string{"norte"}, criteria.TargetRegions)
	assert.True(t, criteria.InnovationFocus)
	assert.Contains(t, criteria.Keywords, "desenvolvimento de software")
	assert.Contains(t, criteria.Keywords, "PME certificada")
}

func TestExtractCriteriaFallsBackToUnstructuredField(t *testing.T) {
	aiDescription := `{"target_sectors":["agricultura"],"sustainability_focus":true}`
	incentive := &models.Incentive{
		ID:            1,
		Title:         "Apoio agrícola",
		AIDescription: &aiDescription,
	}

	criteria := ExtractCriteria(incentive)

	assert.Equal(t, []string{"agricultura"}, criteria.TargetSectors)
	assert.True(t, criteria.SustainabilityFocus)
}

func TestExtractCriteriaDegradesToKeywordsOnly(t *testing.T) {
	description := "Programa de financiamento para empresas exportadoras de produtos alimentares"
	incentive := &models.Incentive{
		ID:                    1,
		Title:                 "Incentivo à exportação",
		Description:           &description,
		StructuredDescription: json.RawMessage(`"not an object"`),
	}

	criteria := ExtractCriteria(incentive)

	assert.Empty(t, criteria.TargetSectors)
	assert.False(t, criteria.HasFocus())
	assert.NotEmpty(t, criteria.Keywords)
	assert.Contains(t, criteria.Keywords, "empresas")
}

func TestExtractKeywordsDropsStopWordsAndShortWords(t *testing.T) {
	keywords := extractKeywords("para com uma das empresas tecnologia tecnologia inovação")

	assert.NotContains(t, keywords, "para")
	assert.NotContains(t, keywords, "com")
	assert.NotContains(t, keywords, "uma")
	assert.Contains(t, keywords, "tecnologia")
	// most frequent word sorts first
	assert.Equal(t, "tecnologia", keywords[0])
}

func TestExtractKeywordsCapsAtTwenty(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString("palavra")
		sb.WriteString(strings.Repeat("x", i+1))
		sb.WriteString(" ")
	}

	keywords := extractKeywords(sb.String())
	assert.LessOrEqual(t, len(keywords), 20)
}
