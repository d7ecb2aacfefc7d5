package models

import (
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
)

// Company represents a candidate organization record
type Company struct {
	ID               int64            `json:"id" db:"id"`
	Name             string           `json:"company_name" db:"company_name"`
	CAEPrimaryLabel  *string          `json:"cae_primary_label,omitempty" db:"cae_primary_label"`
	TradeDescription *string          `json:"trade_description_native,omitempty" db:"trade_description_native"`
	Website          *string          `json:"website,omitempty" db:"website"`
	Embedding        *pgvector.Vector `json:"-" db:"embedding"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
}

// SectorLabel returns the sector label or empty string.
func (c *Company) SectorLabel() string {
	if c.CAEPrimaryLabel == nil {
		return ""
	}
	return *c.CAEPrimaryLabel
}

// ActivityText returns the trade description or empty string.
func (c *Company) ActivityText() string {
	if c.TradeDescription == nil {
		return ""
	}
	return *c.TradeDescription
}

// SearchText returns the combined description and sector text used by
// keyword and focus-area filtering.
func (c *Company) SearchText() string {
	return strings.TrimSpace(c.ActivityText() + " " + c.SectorLabel())
}

// CreateCompanyRequest is one row of a company import
type CreateCompanyRequest struct {
	Name             string  `json:"company_name" validate:"required"`
	CAEPrimaryLabel  *string `json:"cae_primary_label,omitempty"`
	TradeDescription *string `json:"trade_description_native,omitempty"`
	Website          *string `json:"website,omitempty"`
}

// Candidate is a company paired with a similarity score in [0,1]. It only
// exists inside the matching pipeline and is never persisted.
type Candidate struct {
	Company    Company `json:"company"`
	Similarity float64 `json:"similarity"`
}
