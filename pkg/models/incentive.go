package models

import (
	"encoding/json"
	"time"

	"github.com/pgvector/pgvector-go"
)

// FundingType is the broad category of funding an incentive provides
type FundingType string

const (
	FundingTypeGrant      FundingType = "grant"
	FundingTypeLoan       FundingType = "loan"
	FundingTypeTaxBenefit FundingType = "tax_benefit"
	FundingTypeOther      FundingType = "other"
)

// Incentive represents a public funding incentive record
type Incentive struct {
	ID                    int64            `json:"id" db:"id"`
	Title                 string           `json:"title" db:"title"`
	Description           *string          `json:"description,omitempty" db:"description"`
	AIDescription         *string          `json:"ai_description,omitempty" db:"ai_description"`
	StructuredDescription json.RawMessage  `json:"ai_description_structured,omitempty" db:"ai_description_structured"`
	TotalBudget           *float64         `json:"total_budget,omitempty" db:"total_budget"`
	DateStart             *time.Time       `json:"date_start,omitempty" db:"date_start"`
	DateEnd               *time.Time       `json:"date_end,omitempty" db:"date_end"`
	Embedding             *pgvector.Vector `json:"-" db:"embedding"`
	CreatedAt             time.Time        `json:"created_at" db:"created_at"`
}

// StructuredDescription is the LLM-extracted summary of an incentive. All fields
// are optional; a zero value means extraction found nothing.
type StructuredDescription struct {
	Objective           string      `json:"objective"`
	TargetSectors       []string    `json:"target_sectors"`
	TargetRegions       []string    `json:"target_regions"`
	EligibleActivities  []string    `json:"eligible_activities"`
	FundingType         FundingType `json:"funding_type"`
	KeyRequirements     []string    `json:"key_requirements"`
	InnovationFocus     bool        `json:"innovation_focus"`
	SustainabilityFocus bool        `json:"sustainability_focus"`
	DigitalFocus        bool        `json:"digital_transformation_focus"`
}

// IsEmpty reports whether extraction produced no usable criteria.
func (s *StructuredDescription) IsEmpty() bool {
	return s == nil || (s.Objective == "" &&
		len(s.TargetSectors) == 0 &&
		len(s.TargetRegions) == 0 &&
		len(s.EligibleActivities) == 0 &&
		len(s.KeyRequirements) == 0 &&
		!s.InnovationFocus && !s.SustainabilityFocus && !s.DigitalFocus)
}

// ParseStructuredDescription decodes the stored structured description.
// Malformed JSON yields (nil, false), never an error; callers degrade to
// the next extraction strategy.
func (i *Incentive) ParseStructuredDescription() (*StructuredDescription, bool) {
	if len(i.StructuredDescription) == 0 {
		return nil, false
	}
	var s StructuredDescription
	if err := json.Unmarshal(i.StructuredDescription, &s); err != nil {
		return nil, false
	}
	if s.IsEmpty() {
		return nil, false
	}
	return &s, true
}

// CreateIncentiveRequest is the request to create an incentive
type CreateIncentiveRequest struct {
	Title         string     `json:"title" validate:"required"`
	Description   *string    `json:"description,omitempty"`
	AIDescription *string    `json:"ai_description,omitempty"`
	TotalBudget   *float64   `json:"total_budget,omitempty"`
	DateStart     *time.Time `json:"date_start,omitempty"`
	DateEnd       *time.Time `json:"date_end,omitempty"`
}
