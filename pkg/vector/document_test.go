package vector

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func strPtr(s string) *string {
	return &s
}

func TestFormatCompanyDocument(t *testing.T) {
	company := &models.Company{
		Name:             "Alpha Lda",
		CAEPrimaryLabel:  strPtr("Tecnologia"),
		TradeDescription: strPtr("Desenvolvimento de software"),
		Website:          strPtr("https://alpha.pt"),
	}

	doc := FormatCompanyDocument(company)

	assert.Equal(t, "Company: Alpha Lda\nSector: Tecnologia\nActivity: Desenvolvimento de software\nWebsite: https://alpha.pt", doc)
}

func TestFormatCompanyDocumentSkipsMissingFields(t *testing.T) {
	doc := FormatCompanyDocument(&models.Company{Name: "Beta"})
	assert.Equal(t, "Company: Beta", doc)
}

func TestFormatIncentiveDocumentIncludesFocusAreas(t *testing.T) {
	raw, err := json.Marshal(models.StructuredDescription{
		TargetSectors:   []string{"energia"},
		InnovationFocus: true,
		DigitalFocus:    true,
		FundingType:     models.FundingTypeGrant,
	})
	require.NoError(t, err)

	incentive := &models.Incentive{
		Title:                 "Apoio à transição energética",
		Description:           strPtr("Financiamento para energias renováveis"),
		StructuredDescription: raw,
	}

	doc := FormatIncentiveDocument(incentive)

	assert.Contains(t, doc, "Incentive: Apoio à transição energética")
	assert.Contains(t, doc, "Description: Financiamento para energias renováveis")
	assert.Contains(t, doc, "Target Sectors: energia")
	assert.Contains(t, doc, "Innovation")
	assert.Contains(t, doc, "Digital Transformation")
	assert.NotContains(t, doc, "Sustainability")
	assert.Contains(t, doc, "Funding Type: grant")
}

func TestFormatIncentiveDocumentToleratesMalformedMetadata(t *testing.T) {
	incentive := &models.Incentive{
		Title:                 "Apoio",
		StructuredDescription: json.RawMessage(`[broken`),
	}

	doc := FormatIncentiveDocument(incentive)
	assert.Equal(t, "Incentive: Apoio", doc)
}
