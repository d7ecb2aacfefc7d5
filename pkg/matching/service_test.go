package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeIncentives struct {
	incentives []models.Incentive
}

func (f *fakeIncentives) Get(ctx context.Context, id int64) (*models.Incentive, error) {
	for i := range f.incentives {
		if f.incentives[i].ID == id {
			return &f.incentives[i], nil
		}
	}
	return nil, errors.New("incentive not found")
}

func (f *fakeIncentives) ListAll(ctx context.Context) ([]models.Incentive, error) {
	return f.incentives, nil
}

type fakeCandidates struct {
	byIncentive map[int64][]models.Candidate
	err         error
}

func (f *fakeCandidates) NearestCompanies(ctx context.Context, incentiveID int64, limit int) ([]models.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byIncentive[incentiveID], nil
}

type fakeRanker struct {
	cost    float64
	failFor map[int64]bool
	calls   int
}

func (f *fakeRanker) Rank(ctx context.Context, incentive *models.Incentive, candidates []models.Candidate) ([]models.Match, float64, error) {
	f.calls++
	if f.failFor[incentive.ID] {
		return nil, f.cost, errors.New("scoring blew up")
	}
	matches := make([]models.Match, 0, len(candidates))
	for idx, candidate := range candidates {
		matches = append(matches, models.Match{
			IncentiveID:  incentive.ID,
			CompanyID:    candidate.Company.ID,
			Score:        4.2,
			RankPosition: idx + 1,
		})
	}
	return matches, f.cost, nil
}

type fakeStore struct {
	upserts map[int64][]models.Match
	err     error
}

func (f *fakeStore) UpsertBatch(ctx context.Context, incentiveID int64, matches []models.Match) error {
	if f.err != nil {
		return f.err
	}
	if f.upserts == nil {
		f.upserts = map[int64][]models.Match{}
	}
	f.upserts[incentiveID] = matches
	return nil
}

type fakeEmitter struct {
	matchEvents int
	batchEvents int
	err         error
}

func (f *fakeEmitter) MatchCompleted(ctx context.Context, incentiveID int64, matches []models.Match) error {
	f.matchEvents++
	return f.err
}

func (f *fakeEmitter) BatchCompleted(ctx context.Context, summary *models.BatchSummary) error {
	f.batchEvents++
	return f.err
}

type fakeHeuristic struct {
	candidates []models.Candidate
	calls      int
}

func (f *fakeHeuristic) Candidates(ctx context.Context, incentive *models.Incentive, companies []models.Company, limit int) []models.Candidate {
	f.calls++
	return f.candidates
}

type fakeCompanies struct {
	companies []models.Company
}

func (f *fakeCompanies) ListAll(ctx context.Context) ([]models.Company, error) {
	return f.companies, nil
}

func singleCandidate(companyID int64) []models.Candidate {
	return []models.Candidate{{Company: models.Company{ID: companyID, Name: "Co"}, Similarity: 0.8}}
}

func newTestService(incentives *fakeIncentives, candidates *fakeCandidates, ranker *fakeRanker, store *fakeStore, emitter *fakeEmitter, opts Options) *Service {
	var events EventEmitter
	if emitter != nil {
		events = emitter
	}
	return NewService(incentives, candidates, ranker, store, events, nil, opts, testLogger())
}

func TestMatchOneReturnsRankedMatchesAndCost(t *testing.T) {
	incentives := &fakeIncentives{incentives: []models.Incentive{{ID: 1, Title: "t"}}}
	candidates := &fakeCandidates{byIncentive: map[int64][]models.Candidate{1: singleCandidate(10)}}
	ranker := &fakeRanker{cost: 0.02}
	service := newTestService(incentives, candidates, ranker, &fakeStore{}, nil, Options{})

	matches, cost, err := service.MatchOne(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(10), matches[0].CompanyID)
	assert.Equal(t, 0.02, cost)
}

func TestMatchOneWithoutCandidatesSkipsScoring(t *testing.T) {
	incentives := &fakeIncentives{incentives: []models.Incentive{{ID: 1, Title: "t"}}}
	candidates := &fakeCandidates{}
	ranker := &fakeRanker{}
	service := newTestService(incentives, candidates, ranker, &fakeStore{}, nil, Options{})

	matches, cost, err := service.MatchOne(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Zero(t, cost)
	assert.Zero(t, ranker.calls)
}

func TestMatchOneFallsBackToHeuristicCandidates(t *testing.T) {
	incentives := &fakeIncentives{incentives: []models.Incentive{{ID: 1, Title: "t"}}}
	candidates := &fakeCandidates{}
	ranker := &fakeRanker{}
	heuristic := &fakeHeuristic{candidates: singleCandidate(77)}
	service := newTestService(incentives, candidates, ranker, &fakeStore{}, nil, Options{})
	service.UseHeuristicFallback(heuristic, &fakeCompanies{companies: []models.Company{{ID: 77}}})

	matches, _, err := service.MatchOne(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(77), matches[0].CompanyID)
	assert.Equal(t, 1, heuristic.calls)
	assert.Equal(t, 1, ranker.calls)
}

func TestMatchOneCostCeilingIsAdvisory(t *testing.T) {
	incentives := &fakeIncentives{incentives: []models.Incentive{{ID: 1, Title: "t"}}}
	candidates := &fakeCandidates{byIncentive: map[int64][]models.Candidate{1: singleCandidate(10)}}
	ranker := &fakeRanker{cost: 2.0}
	service := newTestService(incentives, candidates, ranker, &fakeStore{}, nil, Options{MaxCostPerIncentive: 0.3})

	matches, cost, err := service.MatchOne(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Equal(t, 2.0, cost)
}

func TestPersistSwallowsEventFailures(t *testing.T) {
	incentives := &fakeIncentives{incentives: []models.Incentive{{ID: 1, Title: "t"}}}
	emitter := &fakeEmitter{err: errors.New("broker down")}
	store := &fakeStore{}
	service := newTestService(incentives, &fakeCandidates{}, &fakeRanker{}, store, emitter, Options{})

	err := service.Persist(context.Background(), 1, []models.Match{{IncentiveID: 1, CompanyID: 10}})
	require.NoError(t, err)
	assert.Equal(t, 1, emitter.matchEvents)
	assert.Len(t, store.upserts[1], 1)
}

func TestPersistNothingToWrite(t *testing.T) {
	store := &fakeStore{err: errors.New("should not be called")}
	service := newTestService(&fakeIncentives{}, &fakeCandidates{}, &fakeRanker{}, store, nil, Options{})

	assert.NoError(t, service.Persist(context.Background(), 1, nil))
}

func TestMatchAllZeroCeilingProcessesNothing(t *testing.T) {
	incentives := &fakeIncentives{incentives: []models.Incentive{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}}
	ranker := &fakeRanker{cost: 0.1}
	candidates := &fakeCandidates{byIncentive: map[int64][]models.Candidate{1: singleCandidate(10), 2: singleCandidate(20)}}
	service := newTestService(incentives, candidates, ranker, &fakeStore{}, nil, Options{})

	ceiling := 0.0
	summary, err := service.MatchAll(context.Background(), &ceiling)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalIncentives)
	assert.Zero(t, summary.Successful)
	assert.Zero(t, summary.Failed)
	assert.Zero(t, summary.TotalCost)
	assert.Zero(t, ranker.calls)
}

func TestMatchAllStopsAtAggregateCeiling(t *testing.T) {
	incentives := &fakeIncentives{incentives: []models.Incentive{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}, {ID: 3, Title: "c"}}}
	candidates := &fakeCandidates{byIncentive: map[int64][]models.Candidate{
		1: singleCandidate(10), 2: singleCandidate(20), 3: singleCandidate(30),
	}}
	ranker := &fakeRanker{cost: 0.5}
	service := newTestService(incentives, candidates, ranker, &fakeStore{}, nil, Options{})

	ceiling := 0.5
	summary, err := service.MatchAll(context.Background(), &ceiling)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Successful)
	assert.InDelta(t, 0.5, summary.TotalCost, 0.0001)
	assert.Equal(t, 1, ranker.calls)
}

func TestMatchAllIsolatesPerIncentiveFailures(t *testing.T) {
	incentives := &fakeIncentives{incentives: []models.Incentive{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}, {ID: 3, Title: "c"}}}
	candidates := &fakeCandidates{byIncentive: map[int64][]models.Candidate{
		1: singleCandidate(10), 2: singleCandidate(20), 3: singleCandidate(30),
	}}
	ranker := &fakeRanker{cost: 0.1, failFor: map[int64]bool{2: true}}
	store := &fakeStore{}
	emitter := &fakeEmitter{}
	service := newTestService(incentives, candidates, ranker, store, emitter, Options{})

	summary, err := service.MatchAll(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, summary.ByIncentive, int64(1))
	assert.Contains(t, summary.ByIncentive, int64(3))
	assert.NotContains(t, summary.ByIncentive, int64(2))
	assert.Equal(t, 1, emitter.batchEvents)
	assert.InDelta(t, 4.2, summary.ByIncentive[1].TopScore, 0.0001)
}

func TestMatchAllAbortsOnContextCancellation(t *testing.T) {
	incentives := &fakeIncentives{incentives: []models.Incentive{{ID: 1, Title: "a"}}}
	service := newTestService(incentives, &fakeCandidates{}, &fakeRanker{}, &fakeStore{}, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.MatchAll(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
