package models

import (
	"encoding/json"
	"time"
)

// Composite score weights (Portugal 2030 methodology).
const (
	WeightStrategicFit      = 0.40
	WeightQuality           = 0.35
	WeightExecutionCapacity = 0.25
)

// Score bounds for LLM-ranked matches.
const (
	MinMatchScore = 1.0
	MaxMatchScore = 5.0

	// NeutralMatchScore is assigned when ranking falls back to similarity order.
	NeutralMatchScore = 3.0
)

// Match is a persisted ranked result for an (incentive, company) pair.
// The pair is unique; re-matching overwrites score, rank and reasoning.
type Match struct {
	ID           int64            `json:"id" db:"id"`
	IncentiveID  int64            `json:"incentive_id" db:"incentive_id"`
	CompanyID    int64            `json:"company_id" db:"company_id"`
	Score        float64          `json:"score" db:"score"`
	RankPosition int              `json:"rank_position" db:"rank_position"`
	Reasoning    ReasoningPayload `json:"reasoning" db:"reasoning"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}

// MatchWithCompany is a match joined with its company for display.
type MatchWithCompany struct {
	Match
	CompanyName      string  `json:"company_name" db:"company_name"`
	CAEPrimaryLabel  *string `json:"cae_primary_label,omitempty" db:"cae_primary_label"`
	TradeDescription *string `json:"trade_description_native,omitempty" db:"trade_description_native"`
	Website          *string `json:"website,omitempty" db:"website"`
}

// CriterionScore is a single scored criterion with its justification.
type CriterionScore struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// MatchReasoning is the expected shape of the scoring payload. JSON keys follow
// the Portugal 2030 criteria names used in the scoring prompt.
type MatchReasoning struct {
	StrategicFit      CriterionScore `json:"adequacao_estrategia"`
	Quality           CriterionScore `json:"qualidade"`
	ExecutionCapacity CriterionScore `json:"capacidade_execucao"`
	FinalScore        float64        `json:"final_score"`
	VectorSimilarity  float64        `json:"vector_similarity"`
	Recommendation    string         `json:"recommendation,omitempty"`
	Error             string         `json:"error,omitempty"`
}

// CompositeScore computes the weighted composite from the component scores.
func (r *MatchReasoning) CompositeScore() float64 {
	return r.StrategicFit.Score*WeightStrategicFit +
		r.Quality.Score*WeightQuality +
		r.ExecutionCapacity.Score*WeightExecutionCapacity
}

// ReasoningPayload is a tagged variant around the scoring payload: either the
// expected MatchReasoning shape or an opaque blob when the scoring capability
// returned something else. Storage and display code must not assume Known is
// set.
type ReasoningPayload struct {
	Known  *MatchReasoning
	Opaque json.RawMessage
}

// NewReasoning wraps a well-formed reasoning payload.
func NewReasoning(r MatchReasoning) ReasoningPayload {
	return ReasoningPayload{Known: &r}
}

// NewOpaqueReasoning wraps an unrecognized payload as-is.
func NewOpaqueReasoning(raw json.RawMessage) ReasoningPayload {
	return ReasoningPayload{Opaque: raw}
}

func (p ReasoningPayload) MarshalJSON() ([]byte, error) {
	if p.Known != nil {
		return json.Marshal(p.Known)
	}
	if len(p.Opaque) > 0 {
		return p.Opaque, nil
	}
	return []byte("null"), nil
}

func (p *ReasoningPayload) UnmarshalJSON(data []byte) error {
	var r MatchReasoning
	if err := json.Unmarshal(data, &r); err == nil && reasoningLooksKnown(&r) {
		p.Known = &r
		p.Opaque = nil
		return nil
	}
	p.Known = nil
	p.Opaque = append(json.RawMessage(nil), data...)
	return nil
}

// Scan implements sql.Scanner so the payload can be read from a jsonb column.
func (p *ReasoningPayload) Scan(src any) error {
	if src == nil {
		*p = ReasoningPayload{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return json.Unmarshal([]byte(src.(string)), p)
	}
	return p.UnmarshalJSON(b)
}

// Value implements driver.Valuer for writing the payload to a jsonb column.
func (p ReasoningPayload) Value() (any, error) {
	return p.MarshalJSON()
}

// reasoningLooksKnown checks the minimal fields a scoring payload must carry to
// be treated as the typed shape rather than an opaque blob.
func reasoningLooksKnown(r *MatchReasoning) bool {
	return r.StrategicFit.Score > 0 || r.Quality.Score > 0 || r.ExecutionCapacity.Score > 0 || r.FinalScore > 0
}

// BatchSummary reports the outcome of a whole-catalog matching run.
type BatchSummary struct {
	RunID           string                    `json:"run_id"`
	TotalIncentives int                       `json:"total_incentives"`
	Successful      int                       `json:"successful"`
	Failed          int                       `json:"failed"`
	TotalCost       float64                   `json:"total_cost"`
	ByIncentive     map[int64]IncentiveResult `json:"results_by_incentive"`
}

// IncentiveResult summarizes a single incentive within a batch run.
type IncentiveResult struct {
	MatchCount int     `json:"num_matches"`
	TopScore   float64 `json:"top_score"`
}
