package vector

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// FormatCompanyDocument renders a company as the text that gets embedded.
// Field labels are part of the embedding space, so changing them invalidates
// stored vectors.
func FormatCompanyDocument(company *models.Company) string {
	parts := []string{fmt.Sprintf("Company: %s", company.Name)}

	if sector := company.SectorLabel(); sector != "" {
		parts = append(parts, fmt.Sprintf("Sector: %s", sector))
	}
	if activity := company.ActivityText(); activity != "" {
		parts = append(parts, fmt.Sprintf("Activity: %s", activity))
	}
	if company.Website != nil && *company.Website != "" {
		parts = append(parts, fmt.Sprintf("Website: %s", *company.Website))
	}

	return strings.Join(parts, "\n")
}

// FormatIncentiveDocument renders an incentive as the text that gets embedded.
// Structured metadata is folded in when it parses; malformed metadata is
// skipped rather than failing the row.
func FormatIncentiveDocument(incentive *models.Incentive) string {
	parts := []string{fmt.Sprintf("Incentive: %s", incentive.Title)}

	if incentive.Description != nil && *incentive.Description != "" {
		parts = append(parts, fmt.Sprintf("Description: %s", *incentive.Description))
	}

	if structured, ok := incentive.ParseStructuredDescription(); ok {
		if len(structured.TargetSectors) > 0 {
			parts = append(parts, fmt.Sprintf("Target Sectors: %s", strings.Join(structured.TargetSectors, ", ")))
		}
		if len(structured.TargetRegions) > 0 {
			parts = append(parts, fmt.Sprintf("Target Regions: %s", strings.Join(structured.TargetRegions, ", ")))
		}

		var focusAreas []string
		if structured.InnovationFocus {
			focusAreas = append(focusAreas, "Innovation")
		}
		if structured.SustainabilityFocus {
			focusAreas = append(focusAreas, "Sustainability")
		}
		if structured.DigitalFocus {
			focusAreas = append(focusAreas, "Digital Transformation")
		}
		if len(focusAreas) > 0 {
			parts = append(parts, fmt.Sprintf("Focus Areas: %s", strings.Join(focusAreas, ", ")))
		}

		if structured.FundingType != "" {
			parts = append(parts, fmt.Sprintf("Funding Type: %s", structured.FundingType))
		}
	}

	if incentive.TotalBudget != nil {
		parts = append(parts, fmt.Sprintf("Budget: €%.2f", *incentive.TotalBudget))
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

	return strings.Join(parts, "\n")
}
