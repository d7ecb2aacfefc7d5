// Package matching coordinates the incentive→company pipeline: candidate
// retrieval, batched relevance ranking, cost accounting, and persistence.
package matching

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// CandidateSource yields similarity-ordered candidates for an incentive.
type CandidateSource interface {
	NearestCompanies(ctx context.Context, incentiveID int64, limit int) ([]models.Candidate, error)
}

// Ranker scores candidates against an incentive. The second return value is
// the advisory cost of the call.
type Ranker interface {
	Rank(ctx context.Context, incentive *models.Incentive, candidates []models.Candidate) ([]models.Match, float64, error)
}

// HeuristicSource narrows a full company pool into ranked candidates without
// network calls. Used when an incentive has no embedding yet.
type HeuristicSource interface {
	Candidates(ctx context.Context, incentive *models.Incentive, companies []models.Company, limit int) []models.Candidate
}

// CompanySource supplies the full company pool for the heuristic path.
type CompanySource interface {
	ListAll(ctx context.Context) ([]models.Company, error)
}

// IncentiveSource is the slice of the incentive repository the service needs.
type IncentiveSource interface {
	Get(ctx context.Context, id int64) (*models.Incentive, error)
	ListAll(ctx context.Context) ([]models.Incentive, error)
}

// MatchWriter persists ranked results.
type MatchWriter interface {
	UpsertBatch(ctx context.Context, incentiveID int64, matches []models.Match) error
}

// EventEmitter publishes lifecycle events for completed match runs. Failures
// are logged, never propagated; events are best-effort.
type EventEmitter interface {
	MatchCompleted(ctx context.Context, incentiveID int64, matches []models.Match) error
	BatchCompleted(ctx context.Context, summary *models.BatchSummary) error
}

// GraphProjector mirrors persisted matches into the graph store. Optional.
type GraphProjector interface {
	ProjectMatches(ctx context.Context, incentiveID int64, matches []models.Match) error
}

// Options tune a Service. Cost ceilings are advisory for single runs and an
// early-stop bound for batch runs.
type Options struct {
	TopKCandidates      int
	TopN                int
	MaxCostPerIncentive float64
}

// Service is the top-level match coordinator.
type Service struct {
	incentives IncentiveSource
	candidates CandidateSource
	heuristic  HeuristicSource
	companies  CompanySource
	ranker     Ranker
	store      MatchWriter
	events     EventEmitter
	graph      GraphProjector
	opts       Options
	logger     ectologger.Logger
}

func NewService(
	incentives IncentiveSource,
	candidates CandidateSource,
	ranker Ranker,
	store MatchWriter,
	events EventEmitter,
	graph GraphProjector,
	opts Options,
	logger ectologger.Logger,
) *Service {
	if opts.TopKCandidates < 1 {
		opts.TopKCandidates = 20
	}
	if opts.TopN < 1 {
		opts.TopN = 5
	}
	return &Service{
		incentives: incentives,
		candidates: candidates,
		ranker:     ranker,
		store:      store,
		events:     events,
		graph:      graph,
		opts:       opts,
		logger:     logger,
	}
}

// UseHeuristicFallback enables the no-network candidate path for incentives
// without an embedding. Both arguments must be non-nil for it to take effect.
func (s *Service) UseHeuristicFallback(heuristic HeuristicSource, companies CompanySource) {
	s.heuristic = heuristic
	s.companies = companies
}

// MatchOne runs the full pipeline for a single incentive and returns the
// ranked matches plus the advisory cost of the run. An incentive without
// candidates (typically: no embedding yet) yields an empty result without a
// scoring call. Results are not persisted; call Persist with the output.
func (s *Service) MatchOne(ctx context.Context, incentiveID int64) ([]models.Match, float64, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.MatchOne")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{"incentive_id": incentiveID})

	incentive, err := s.incentives.Get(ctx, incentiveID)
	if err != nil {
		return nil, 0, err
	}

	candidates, err := s.candidates.NearestCompanies(ctx, incentiveID, s.opts.TopKCandidates)
	if err != nil {
		return nil, 0, err
	}
	if len(candidates) == 0 && s.heuristic != nil && s.companies != nil {
		log.Warn("vector retrieval returned nothing, falling back to heuristic candidates")
		pool, err := s.companies.ListAll(ctx)
		if err != nil {
			return nil, 0, err
		}
		candidates = s.heuristic.Candidates(ctx, incentive, pool, s.opts.TopKCandidates)
	}
	if len(candidates) == 0 {
		log.Warn("no candidates for incentive, skipping scoring")
		return []models.Match{}, 0, nil
	}

	matches, cost, err := s.ranker.Rank(ctx, incentive, candidates)
	if err != nil {
		return nil, 0, err
	}

	if s.opts.MaxCostPerIncentive > 0 && cost > s.opts.MaxCostPerIncentive {
		log.WithFields(map[string]any{
			"cost":    cost,
			"ceiling": s.opts.MaxCostPerIncentive,
		}).Warn("scoring cost exceeded per-incentive ceiling")
	}

	log.WithFields(map[string]any{"matches": len(matches), "cost": cost}).Info("matching completed")
	return matches, cost, nil
}

// Persist writes matches for an incentive in a single transaction, then
// emits the completion event and projects into the graph store. The write is
// all-or-nothing; event and graph failures are logged and swallowed.
func (s *Service) Persist(ctx context.Context, incentiveID int64, matches []models.Match) error {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.Persist")
	defer span.End()

	if len(matches) == 0 {
		return nil
	}

	if err := s.store.UpsertBatch(ctx, incentiveID, matches); err != nil {
		return err
	}

	if s.events != nil {
		if err := s.events.MatchCompleted(ctx, incentiveID, matches); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"incentive_id": incentiveID}).Error("failed to emit match completed event")
		}
	}

	if s.graph != nil {
		if err := s.graph.ProjectMatches(ctx, incentiveID, matches); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"incentive_id": incentiveID}).Error("failed to project matches into graph")
		}
	}

	return nil
}

// MatchAndPersist is MatchOne followed by Persist.
func (s *Service) MatchAndPersist(ctx context.Context, incentiveID int64) ([]models.Match, float64, error) {
	matches, cost, err := s.MatchOne(ctx, incentiveID)
	if err != nil {
		return nil, cost, err
	}
	if err := s.Persist(ctx, incentiveID, matches); err != nil {
		return nil, cost, err
	}
	return matches, cost, nil
}

// MatchAll runs the pipeline for every incentive sequentially. A nil
// aggregateCostCeiling means unlimited; otherwise processing stops before the
// next incentive once accumulated cost reaches the ceiling (a ceiling of 0
// therefore processes nothing). One incentive failing is counted and skipped,
// never aborting the batch; context cancellation does abort.
func (s *Service) MatchAll(ctx context.Context, aggregateCostCeiling *float64) (*models.BatchSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.MatchAll")
	defer span.End()

	incentives, err := s.incentives.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	summary := &models.BatchSummary{
		RunID:           uuid.New().String(),
		TotalIncentives: len(incentives),
		ByIncentive:     make(map[int64]models.IncentiveResult, len(incentives)),
	}
	log := s.logger.WithContext(ctx).WithFields(map[string]any{"run_id": summary.RunID, "total": len(incentives)})
	log.Info("starting batch matching")

	for _, incentive := range incentives {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if aggregateCostCeiling != nil && summary.TotalCost >= *aggregateCostCeiling {
			log.WithFields(map[string]any{"total_cost": summary.TotalCost}).Warn("aggregate cost ceiling reached, stopping batch")
			break
		}

		matches, cost, err := s.MatchAndPersist(ctx, incentive.ID)
		summary.TotalCost += cost
		if err != nil {
			log.WithError(err).WithFields(map[string]any{"incentive_id": incentive.ID}).Error("incentive failed during batch matching")
			summary.Failed++
			continue
		}

		result := models.IncentiveResult{MatchCount: len(matches)}
		if len(matches) > 0 {
			result.TopScore = matches[0].Score
		}
		summary.ByIncentive[incentive.ID] = result
		summary.Successful++
	}

	if s.events != nil {
		if err := s.events.BatchCompleted(ctx, summary); err != nil {
			log.WithError(err).Error("failed to emit batch completed event")
		}
	}

	log.WithFields(map[string]any{
		"successful": summary.Successful,
		"failed":     summary.Failed,
		"total_cost": fmt.Sprintf("%.4f", summary.TotalCost),
	}).Info("batch matching completed")
	return summary, nil
}
