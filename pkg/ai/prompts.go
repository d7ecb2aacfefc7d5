package ai

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// MatchingSystemPrompt frames the model as a Portugal 2030 incentive analyst.
// The criterion weights here must stay in sync with the composite formula in
// pkg/models.
const MatchingSystemPrompt = `You are an expert analyst specializing in Portuguese public incentive programs and company matching.

Your role is to evaluate how well companies match specific incentives based on:
1. Adequação à Estratégia (40%): Sectoral alignment, regional strategy (RIS3)
2. Qualidade (35%): Innovation, diversification, complexity
3. Capacidade de Execução (25%): Resources, experience, maturity

Provide objective, consistent scoring based on clear criteria.`

const StructuredDescriptionSystemPrompt = `You are a helpful assistant that extracts structured information from Portuguese public incentive descriptions.

Your task is to analyze incentive text and extract key information into a structured JSON format.

Rules:
- Return ONLY valid JSON without any markdown formatting or code blocks
- Use Portuguese for extracted text fields
- If information is not available, use empty strings or empty arrays
- Be precise and conservative - only extract what's explicitly stated`

// BuildMatchingPrompt assembles the single batched ranking prompt covering
// every candidate. Candidates are numbered from 1 so the model can reference
// them by position in its response.
func BuildMatchingPrompt(incentive *models.Incentive, candidates []models.Candidate, topN int) string {
	var candidateBlocks []string
	for idx, candidate := range candidates {
		candidateBlocks = append(candidateBlocks, fmt.Sprintf(`
Company %d (Vector Similarity: %.3f):
Name: %s
Sector: %s
Description: %s
Website: %s
---`,
			idx+1,
			candidate.Similarity,
			candidate.Company.Name,
			orFallback(candidate.Company.SectorLabel(), "Not specified"),
			orFallback(candidate.Company.ActivityText(), "Not available"),
			orFallback(derefString(candidate.Company.Website), "Not available"),
		))
	}

	return fmt.Sprintf(`Analyze and rank these %d pre-filtered companies for the following incentive.

Your task: Score each company and return the TOP %d best matches.

INCENTIVE:
%s

COMPANIES:
%s

SCORING CRITERIA (Portugal 2030 methodology):
1. Adequação à Estratégia (40%%): Sectoral alignment, regional strategy (RIS3)
2. Qualidade (35%%): Innovation potential, diversification, project complexity
3. Capacidade de Execução (25%%): Resources, experience, organizational maturity

For each company, score 1-5 on each criterion:
- 1: Very poor match
- 2: Poor match
- 3: Moderate match
- 4: Good match
- 5: Excellent match

Return ONLY the top %d companies as a JSON array, ranked by best match first:
[
  {
    "company_number": 1,
    "adequacao_estrategia": {"score": 1-5, "reasoning": "brief explanation"},
    "qualidade": {"score": 1-5, "reasoning": "brief explanation"},
    "capacidade_execucao": {"score": 1-5, "reasoning": "brief explanation"},
    "recommendation": "1-2 sentence recommendation"
  },
  ...
]`,
		len(candidates),
		topN,
		FormatIncentive(incentive),
		strings.Join(candidateBlocks, "\n"),
		topN,
	)
}

// FormatIncentive renders an incentive as prompt text. Structured fields are
// preferred when they parse; malformed metadata is skipped silently so a bad
// row never blocks a match run.
func FormatIncentive(incentive *models.Incentive) string {
	parts := []string{fmt.Sprintf("Title: %s", incentive.Title)}

	if structured, ok := incentive.ParseStructuredDescription(); ok {
		if structured.Objective != "" {
			parts = append(parts, fmt.Sprintf("Objective: %s", structured.Objective))
		}
		if len(structured.TargetSectors) > 0 {
			parts = append(parts, fmt.Sprintf("Target Sectors: %s", strings.Join(structured.TargetSectors, ", ")))
		}
		if len(structured.TargetRegions) > 0 {
			parts = append(parts, fmt.Sprintf("Target Regions: %s", strings.Join(structured.TargetRegions, ", ")))
		}
		if structured.FundingType != "" {
			parts = append(parts, fmt.Sprintf("Funding Type: %s", structured.FundingType))
		}
		if len(structured.KeyRequirements) > 0 {
			requirements := structured.KeyRequirements
			if len(requirements) > 3 {
				requirements = requirements[:3]
			}
			parts = append(parts, fmt.Sprintf("Requirements: %s", strings.Join(requirements, ", ")))
		}
	}

	if incentive.Description != nil && *incentive.Description != "" {
		description := *incentive.Description
		if len(description) > 300 {
			description = description[:300] + "..."
		}
		parts = append(parts, fmt.Sprintf("Description: %s", description))
	}

	if incentive.DateStart != nil || incentive.DateEnd != nil {
		start, end := "N/A", "N/A"
		if incentive.DateStart != nil {
			start = incentive.DateStart.Format("2006-01-02")
		}
		if incentive.DateEnd != nil {
			end = incentive.DateEnd.Format("2006-01-02")
		}
		parts = append(parts, fmt.Sprintf("Period: %s to %s", start, end))
	}
	if incentive.TotalBudget != nil {
		parts = append(parts, fmt.Sprintf("Budget: %.2f", *incentive.TotalBudget))
	}

	return strings.Join(parts, "\n")
}

// BuildStructuredDescriptionPrompt asks the model to extract the structured
// metadata the prefilter relies on.
func BuildStructuredDescriptionPrompt(inputText string) string {
	return fmt.Sprintf(`Extract structured information from this Portuguese incentive description.

Return a JSON object with this exact structure:
{
    "objective": "Main goal/purpose of the incentive (concise, 1-2 sentences)",
    "target_sectors": ["sector1", "sector2"],
    "target_regions": ["region1", "region2"],
    "eligible_activities": ["activity1", "activity2"],
    "funding_type": "grant/loan/tax_benefit/other",
    "key_requirements": ["requirement1", "requirement2"],
    "innovation_focus": true/false,
    "sustainability_focus": true/false,
    "digital_transformation_focus": true/false
}

Guidelines:
- target_sectors: Economic sectors (e.g., "Indústria", "Turismo", "Agricultura")
- target_regions: Geographic regions (e.g., "Norte", "Lisboa", "Nacional")
- eligible_activities: Specific activities that can be funded
- funding_type: Choose the most appropriate type
- key_requirements: Main eligibility criteria (e.g., company size, location)
- Focus flags: Set to true if the incentive explicitly mentions innovation/sustainability/digital transformation

Incentive Information:
%s`, inputText)
}

func orFallback(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
