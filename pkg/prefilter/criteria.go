package prefilter

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Criteria is the distilled filtering input extracted from an incentive.
type Criteria struct {
	TargetSectors       []string
	TargetRegions       []string
	Keywords            []string
	InnovationFocus     bool
	SustainabilityFocus bool
	DigitalFocus        bool
}

// HasFocus reports whether any focus flag is set.
func (c *Criteria) HasFocus() bool {
	return c.InnovationFocus || c.SustainabilityFocus || c.DigitalFocus
}

// extractionStrategy attempts to pull criteria out of one incentive field.
// It returns false when the field is absent or malformed so the caller can
// try the next strategy; it never errors.
type extractionStrategy func(*models.Incentive) (*Criteria, bool)

var extractionStrategies = []extractionStrategy{
	fromStructuredDescription,
	fromUnstructuredDescription,
}

// ExtractCriteria builds filtering criteria for an incentive. Structured
// metadata wins, then the unstructured AI description, then nothing; keywords
// mined from the title and description are appended in every case.
func ExtractCriteria(incentive *models.Incentive) *Criteria {
	criteria := &Criteria{}
	for _, strategy := range extractionStrategies {
		if extracted, ok := strategy(incentive); ok {
			criteria = extracted
			break
		}
	}

	text := incentive.Title
	if incentive.Description != nil {
		text += " " + *incentive.Description
	}
	criteria.Keywords = append(criteria.Keywords, extractKeywords(text)...)

	return criteria
}

func fromStructuredDescription(incentive *models.Incentive) (*Criteria, bool) {
	structured, ok := incentive.ParseStructuredDescription()
	if !ok {
		return nil, false
	}
	return criteriaFromStructured(structured), true
}

// fromUnstructuredDescription handles rows where the structured column is
// empty but ai_description holds the same JSON shape as a string.
func fromUnstructuredDescription(incentive *models.Incentive) (*Criteria, bool) {
	if incentive.AIDescription == nil || *incentive.AIDescription == "" {
		return nil, false
	}
	var structured models.StructuredDescription
	if err := json.Unmarshal([]byte(*incentive.AIDescription), &structured); err != nil {
		return nil, false
	}
	if structured.IsEmpty() {
		return nil, false
	}
	return criteriaFromStructured(&structured), true
}

func criteriaFromStructured(structured *models.StructuredDescription) *Criteria {
	keywords := make([]string, 0, len(structured.EligibleActivities)+len(structured.KeyRequirements))
	keywords = append(keywords, structured.EligibleActivities...)
	keywords = append(keywords, structured.KeyRequirements...)

	return &Criteria{
		TargetSectors:       structured.TargetSectors,
		TargetRegions:       structured.TargetRegions,
		Keywords:            keywords,
		InnovationFocus:     structured.InnovationFocus,
		SustainabilityFocus: structured.SustainabilityFocus,
		DigitalFocus:        structured.DigitalFocus,
	}
}

var wordPattern = regexp.MustCompile(`\p{L}{4,}`)

// extractKeywords returns the twenty most frequent content words of four or
// more characters, stop-words removed.
func extractKeywords(text string) []string {
	if text == "" {
		return nil
	}

	counts := map[string]int{}
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopWords[word]; stop {
			continue
		}
		counts[word]++
	}

	words := make([]string, 0, len(counts))
	for word := range counts {
		words = append(words, word)
	}
	sort.Slice(words, func(a, b int) bool {
		if counts[words[a]] != counts[words[b]] {
			return counts[words[a]] > counts[words[b]]
		}
		return words[a] < words[b]
	})

	if len(words) > 20 {
		words = words[:20]
	}
	return words
}

// broadenedKeywords returns the generic funding terms present in the
// incentive text plus the sector-agnostic business terms.
func broadenedKeywords(incentive *models.Incentive) []string {
	text := strings.ToLower(incentive.Title)
	if incentive.Description != nil {
		text += " " + strings.ToLower(*incentive.Description)
	}

	var terms []string
	for _, term := range broadenedTerms {
		if strings.Contains(text, term) {
			terms = append(terms, term)
		}
	}
	return append(terms, genericBusinessTerms...)
}
