package matching

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/ai"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// RelevanceRanker turns a short candidate list into ranked matches with one
// batched scoring call. A response that fails to parse degrades to
// similarity-order ranking at the neutral score instead of erroring, so a
// flaky model never sinks a match run.
type RelevanceRanker struct {
	completer   ai.Completer
	topN        int
	temperature float64
	maxTokens   int
	logger      ectologger.Logger
}

func NewRelevanceRanker(completer ai.Completer, topN int, temperature float64, maxTokens int, logger ectologger.Logger) *RelevanceRanker {
	if topN < 1 {
		topN = 5
	}
	return &RelevanceRanker{
		completer:   completer,
		topN:        topN,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger,
	}
}

// rankedEntry is one element of the model's JSON array response. Candidates
// are referenced by their 1-based position in the prompt.
type rankedEntry struct {
	CompanyNumber     int                   `json:"company_number"`
	StrategicFit      models.CriterionScore `json:"adequacao_estrategia"`
	Quality           models.CriterionScore `json:"qualidade"`
	ExecutionCapacity models.CriterionScore `json:"capacidade_execucao"`
	FinalScore        *float64              `json:"final_score,omitempty"`
	Recommendation    string                `json:"recommendation"`
}

// Rank scores candidates against the incentive and returns at most topN
// matches ordered best first, plus the advisory cost of the scoring call.
// Candidates must arrive sorted by descending similarity; that order is the
// fallback ranking.
func (r *RelevanceRanker) Rank(ctx context.Context, incentive *models.Incentive, candidates []models.Candidate) ([]models.Match, float64, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.RelevanceRanker.Rank")
	defer span.End()

	if len(candidates) == 0 {
		return []models.Match{}, 0, nil
	}

	result, err := r.completer.Complete(ctx, ai.CompletionRequest{
		Prompt:       ai.BuildMatchingPrompt(incentive, candidates, r.topN),
		SystemPrompt: ai.MatchingSystemPrompt,
		Temperature:  r.temperature,
		MaxTokens:    r.maxTokens,
	})
	if err != nil {
		return nil, 0, err
	}

	matches, parseErr := r.parseResponse(ctx, incentive.ID, result.Content, candidates)
	if parseErr != nil {
		r.logger.WithContext(ctx).WithError(parseErr).WithFields(map[string]any{
			"incentive_id": incentive.ID,
		}).Error("scoring response did not parse, falling back to similarity order")
		return r.similarityFallback(incentive.ID, candidates, parseErr), result.Usage.Cost, nil
	}

	return matches, result.Usage.Cost, nil
}

func (r *RelevanceRanker) parseResponse(ctx context.Context, incentiveID int64, content string, candidates []models.Candidate) ([]models.Match, error) {
	var entries []rankedEntry
	if err := json.Unmarshal([]byte(content), &entries); err != nil {
		return nil, fmt.Errorf("expected JSON array of ranked companies: %w", err)
	}

	if len(entries) > r.topN {
		entries = entries[:r.topN]
	}

	matches := make([]models.Match, 0, len(entries))
	seen := make(map[int64]struct{}, len(entries))

	for _, entry := range entries {
		if entry.CompanyNumber < 1 || entry.CompanyNumber > len(candidates) {
			r.logger.WithContext(ctx).WithFields(map[string]any{
				"incentive_id":   incentiveID,
				"company_number": entry.CompanyNumber,
			}).Warn("scoring response referenced an unknown candidate, skipping")
			continue
		}

		candidate := candidates[entry.CompanyNumber-1]
		if _, dup := seen[candidate.Company.ID]; dup {
			continue
		}
		seen[candidate.Company.ID] = struct{}{}

		reasoning := models.MatchReasoning{
			StrategicFit:      entry.StrategicFit,
			Quality:           entry.Quality,
			ExecutionCapacity: entry.ExecutionCapacity,
			VectorSimilarity:  candidate.Similarity,
			Recommendation:    entry.Recommendation,
		}

		score := reasoning.CompositeScore()
		if entry.FinalScore != nil {
			score = *entry.FinalScore
		}
		score = clampScore(score)
		reasoning.FinalScore = score

		matches = append(matches, models.Match{
			IncentiveID:  incentiveID,
			CompanyID:    candidate.Company.ID,
			Score:        score,
			RankPosition: len(matches) + 1,
			Reasoning:    models.NewReasoning(reasoning),
		})
	}

	// Entries missing company_number decode to zero and get skipped above,
	// so a non-empty array that resolved nothing is a wrong-shape response,
	// not an empty ranking.
	if len(matches) == 0 && len(entries) > 0 {
		return nil, fmt.Errorf("no ranked entry referenced a known candidate")
	}

	return matches, nil
}

// similarityFallback ranks the first min(topN, len) candidates in their
// incoming similarity order, all at the neutral score.
func (r *RelevanceRanker) similarityFallback(incentiveID int64, candidates []models.Candidate, cause error) []models.Match {
	n := r.topN
	if len(candidates) < n {
		n = len(candidates)
	}

	matches := make([]models.Match, 0, n)
	for idx := 0; idx < n; idx++ {
		candidate := candidates[idx]
		neutral := models.CriterionScore{Score: models.NeutralMatchScore, Reasoning: "LLM parsing failed"}

		matches = append(matches, models.Match{
			IncentiveID:  incentiveID,
			CompanyID:    candidate.Company.ID,
			Score:        models.NeutralMatchScore,
			RankPosition: idx + 1,
			Reasoning: models.NewReasoning(models.MatchReasoning{
				StrategicFit:      neutral,
				Quality:           neutral,
				ExecutionCapacity: neutral,
				FinalScore:        models.NeutralMatchScore,
				VectorSimilarity:  candidate.Similarity,
				Recommendation:    fmt.Sprintf("Selected by vector similarity (%.3f)", candidate.Similarity),
				Error:             cause.Error(),
			}),
		})
	}
	return matches
}

func clampScore(score float64) float64 {
	if score < models.MinMatchScore {
		return models.MinMatchScore
	}
	if score > models.MaxMatchScore {
		return models.MaxMatchScore
	}
	return score
}
