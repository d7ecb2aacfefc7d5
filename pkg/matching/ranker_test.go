package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/ai"
	"github.com/Ramsey-B/fern/pkg/models"
)

type stubCompleter struct {
	content string
	cost    float64
	err     error
	calls   int
}

func (s *stubCompleter) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &ai.CompletionResult{Content: s.content, Usage: ai.Usage{Cost: s.cost}}, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func testCandidates(n int) []models.Candidate {
	candidates := make([]models.Candidate, 0, n)
	for i := 0; i < n; i++ {
		candidates = append(candidates, models.Candidate{
			Company:    models.Company{ID: int64(i + 1), Name: "Company"},
			Similarity: 0.9 - float64(i)*0.1,
		})
	}
	return candidates
}

func testIncentive() *models.Incentive {
	return &models.Incentive{ID: 42, Title: "Apoio à inovação"}
}

func TestRankComputesCompositeScore(t *testing.T) {
	completer := &stubCompleter{
		content: `[{"company_number":1,"adequacao_estrategia":{"score":5,"reasoning":"a"},"qualidade":{"score":3,"reasoning":"b"},"capacidade_execucao":{"score":1,"reasoning":"c"},"recommendation":"go"}]`,
		cost:    0.01,
	}
	ranker := NewRelevanceRanker(completer, 5, 0.1, 2000, testLogger())

	matches, cost, err := ranker.Rank(context.Background(), testIncentive(), testCandidates(3))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	assert.InDelta(t, 3.30, matches[0].Score, 0.0001)
	assert.Equal(t, int64(1), matches[0].CompanyID)
	assert.Equal(t, 1, matches[0].RankPosition)
	assert.Equal(t, 0.01, cost)

	require.NotNil(t, matches[0].Reasoning.Known)
	assert.InDelta(t, 3.30, matches[0].Reasoning.Known.FinalScore, 0.0001)
	assert.Equal(t, "go", matches[0].Reasoning.Known.Recommendation)
	assert.InDelta(t, 0.9, matches[0].Reasoning.Known.VectorSimilarity, 0.0001)
}

func TestRankClampsExplicitFinalScore(t *testing.T) {
	completer := &stubCompleter{
		content: `[{"company_number":1,"adequacao_estrategia":{"score":5},"qualidade":{"score":5},"capacidade_execucao":{"score":5},"final_score":7.5}]`,
	}
	ranker := NewRelevanceRanker(completer, 5, 0.1, 2000, testLogger())

	matches, _, err := ranker.Rank(context.Background(), testIncentive(), testCandidates(2))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, models.MaxMatchScore, matches[0].Score)
}

func TestRankSkipsUnknownCandidateNumbers(t *testing.T) {
	completer := &stubCompleter{
		content: `[
			{"company_number":2,"adequacao_estrategia":{"score":4},"qualidade":{"score":4},"capacidade_execucao":{"score":4}},
			{"company_number":99,"adequacao_estrategia":{"score":5},"qualidade":{"score":5},"capacidade_execucao":{"score":5}},
			{"company_number":1,"adequacao_estrategia":{"score":3},"qualidade":{"score":3},"capacidade_execucao":{"score":3}}
		]`,
	}
	ranker := NewRelevanceRanker(completer, 5, 0.1, 2000, testLogger())

	matches, _, err := ranker.Rank(context.Background(), testIncentive(), testCandidates(2))
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// the invalid entry is dropped and ranks stay contiguous
	assert.Equal(t, int64(2), matches[0].CompanyID)
	assert.Equal(t, 1, matches[0].RankPosition)
	assert.Equal(t, int64(1), matches[1].CompanyID)
	assert.Equal(t, 2, matches[1].RankPosition)
}

func TestRankDeduplicatesRepeatedCandidates(t *testing.T) {
	completer := &stubCompleter{
		content: `[
			{"company_number":1,"adequacao_estrategia":{"score":4},"qualidade":{"score":4},"capacidade_execucao":{"score":4}},
			{"company_number":1,"adequacao_estrategia":{"score":2},"qualidade":{"score":2},"capacidade_execucao":{"score":2}},
			{"company_number":2,"adequacao_estrategia":{"score":3},"qualidade":{"score":3},"capacidade_execucao":{"score":3}}
		]`,
	}
	ranker := NewRelevanceRanker(completer, 5, 0.1, 2000, testLogger())

	matches, _, err := ranker.Rank(context.Background(), testIncentive(), testCandidates(3))
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, int64(1), matches[0].CompanyID)
	assert.Equal(t, int64(2), matches[1].CompanyID)
}

func TestRankTruncatesToTopN(t *testing.T) {
	completer := &stubCompleter{
		content: `[
			{"company_number":1,"adequacao_estrategia":{"score":5},"qualidade":{"score":5},"capacidade_execucao":{"score":5}},
			{"company_number":2,"adequacao_estrategia":{"score":4},"qualidade":{"score":4},"capacidade_execucao":{"score":4}},
			{"company_number":3,"adequacao_estrategia":{"score":3},"qualidade":{"score":3},"capacidade_execucao":{"score":3}}
		]`,
	}
	ranker := NewRelevanceRanker(completer, 2, 0.1, 2000, testLogger())

	matches, _, err := ranker.Rank(context.Background(), testIncentive(), testCandidates(3))
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestRankFallsBackToSimilarityOrderOnParseFailure(t *testing.T) {
	completer := &stubCompleter{content: "the model rambled instead of returning JSON", cost: 0.05}
	ranker := NewRelevanceRanker(completer, 5, 0.1, 2000, testLogger())

	candidates := testCandidates(3)
	matches, cost, err := ranker.Rank(context.Background(), testIncentive(), candidates)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, 0.05, cost)

	for idx, match := range matches {
		assert.Equal(t, models.NeutralMatchScore, match.Score)
		assert.Equal(t, idx+1, match.RankPosition)
		assert.Equal(t, candidates[idx].Company.ID, match.CompanyID)
		require.NotNil(t, match.Reasoning.Known)
		assert.NotEmpty(t, match.Reasoning.Known.Error)
	}
}

func TestRankFallsBackWhenEntriesLackCompanyNumbers(t *testing.T) {
	completer := &stubCompleter{content: `[{"foo":1},{"bar":2}]`, cost: 0.02}
	ranker := NewRelevanceRanker(completer, 5, 0.1, 2000, testLogger())

	candidates := testCandidates(3)
	matches, cost, err := ranker.Rank(context.Background(), testIncentive(), candidates)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, 0.02, cost)

	for idx, match := range matches {
		assert.Equal(t, models.NeutralMatchScore, match.Score)
		assert.Equal(t, idx+1, match.RankPosition)
		assert.Equal(t, candidates[idx].Company.ID, match.CompanyID)
		require.NotNil(t, match.Reasoning.Known)
		assert.NotEmpty(t, match.Reasoning.Known.Error)
	}
}

func TestRankFallsBackWhenEveryEntryIsOutOfBounds(t *testing.T) {
	completer := &stubCompleter{
		content: `[{"company_number":10,"final_score":4.0},{"company_number":11,"final_score":3.5}]`,
	}
	ranker := NewRelevanceRanker(completer, 5, 0.1, 2000, testLogger())

	matches, _, err := ranker.Rank(context.Background(), testIncentive(), testCandidates(2))
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, match := range matches {
		assert.Equal(t, models.NeutralMatchScore, match.Score)
	}
}

func TestRankFallbackCapsAtTopN(t *testing.T) {
	completer := &stubCompleter{content: "not json"}
	ranker := NewRelevanceRanker(completer, 2, 0.1, 2000, testLogger())

	matches, _, err := ranker.Rank(context.Background(), testIncentive(), testCandidates(5))
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestRankEmptyCandidatesSkipsScoringCall(t *testing.T) {
	completer := &stubCompleter{err: errors.New("should not be called")}
	ranker := NewRelevanceRanker(completer, 5, 0.1, 2000, testLogger())

	matches, cost, err := ranker.Rank(context.Background(), testIncentive(), nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Zero(t, cost)
	assert.Zero(t, completer.calls)
}

func TestRankPropagatesCompletionError(t *testing.T) {
	completer := &stubCompleter{err: errors.New("provider down")}
	ranker := NewRelevanceRanker(completer, 5, 0.1, 2000, testLogger())

	_, _, err := ranker.Rank(context.Background(), testIncentive(), testCandidates(1))
	assert.Error(t, err)
}
