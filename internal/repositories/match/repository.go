package match

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/tracing"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Repository handles match persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// UpsertBatch writes all matches for an incentive in one transaction. The
// (incentive_id, company_id) pair is unique; rematching overwrites score,
// rank and reasoning and prunes companies that fell out of the ranking.
// All-or-nothing: any row failing rolls back the batch.
func (r *Repository) UpsertBatch(ctx context.Context, incentiveID int64, matches []models.Match) error {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.UpsertBatch")
	defer span.End()

	if len(matches) == 0 {
		return nil
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// drop stale rows first so rank uniqueness holds when the company set changes
	companyIDs := make([]any, 0, len(matches))
	for _, m := range matches {
		companyIDs = append(companyIDs, m.CompanyID)
	}
	del := database.NewDeleteBuilder()
	del.DeleteFrom("matches")
	del.Where(del.Equal("incentive_id", incentiveID), del.NotIn("company_id", companyIDs...))
	delQuery, delArgs := del.Build()
	if _, err := tx.ExecContext(ctx, delQuery, delArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"incentive_id": incentiveID,
		}).Error("Failed to clear stale matches")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save matches")
	}

	now := time.Now().UTC()
	for _, m := range matches {
		ib := database.NewInsertBuilder()
		ib.InsertInto("matches")
		ib.Cols("incentive_id", "company_id", "score", "rank_position", "reasoning", "created_at")
		ib.Values(incentiveID, m.CompanyID, m.Score, m.RankPosition, m.Reasoning, now)

		ub := ib.OnConflict("incentive_id", "company_id")
		ub.Set(
			ub.Assign("score", database.Excluded("score")),
			ub.Assign("rank_position", database.Excluded("rank_position")),
			ub.Assign("reasoning", database.Excluded("reasoning")),
			ub.Assign("created_at", now),
		)

		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"incentive_id": incentiveID,
				"company_id":   m.CompanyID,
			}).Error("Failed to upsert match")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save matches")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"incentive_id": incentiveID,
		"count":        len(matches),
	}).Info("Saved matches")
	return nil
}

// ListByIncentive retrieves matches for an incentive joined with company
// details, best rank first
func (r *Repository) ListByIncentive(ctx context.Context, incentiveID int64) ([]models.MatchWithCompany, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.ListByIncentive")
	defer span.End()

	query := `
		SELECT
			m.id, m.incentive_id, m.company_id, m.score, m.rank_position, m.reasoning, m.created_at,
			c.company_name, c.cae_primary_label, c.trade_description_native, c.website
		FROM matches m
		JOIN companies c ON c.id = m.company_id
		WHERE m.incentive_id = $1
		ORDER BY m.rank_position
	`

	var matches []models.MatchWithCompany
	if err := r.db.SelectContext(ctx, &matches, query, incentiveID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"incentive_id": incentiveID}).Error("Failed to list matches by incentive")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list matches")
	}

	return matches, nil
}

// ListByCompany retrieves matches involving a company, best score first
func (r *Repository) ListByCompany(ctx context.Context, companyID int64) ([]models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.ListByCompany")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "incentive_id", "company_id", "score", "rank_position", "reasoning", "created_at")
	sb.From("matches")
	sb.Where(sb.Equal("company_id", companyID))
	sb.OrderBy("score DESC", "created_at DESC")

	query, args := sb.Build()
	var matches []models.Match
	if err := r.db.SelectContext(ctx, &matches, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"company_id": companyID}).Error("Failed to list matches by company")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list matches")
	}

	return matches, nil
}

// DeleteByIncentive removes all matches for a single incentive
func (r *Repository) DeleteByIncentive(ctx context.Context, incentiveID int64) error {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.DeleteByIncentive")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom("matches")
	db.Where(db.Equal("incentive_id", incentiveID))

	query, args := db.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"incentive_id": incentiveID}).Error("Failed to delete matches for incentive")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete matches")
	}

	return nil
}

// DeleteAll clears the whole matches table. Used by force-refresh batch runs.
func (r *Repository) DeleteAll(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.DeleteAll")
	defer span.End()

	if _, err := r.db.ExecContext(ctx, "DELETE FROM matches"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to clear matches")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear matches")
	}

	r.logger.WithContext(ctx).Info("Cleared all matches")
	return nil
}

// Count returns the total number of stored matches
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.Count")
	defer span.End()

	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM matches"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count matches")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count matches")
	}

	return count, nil
}
