// Package vector owns the pgvector-backed similarity surface: nearest
// neighbor lookups between incentives and companies, natural language
// semantic search, and embedding maintenance.
package vector

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pgvector/pgvector-go"

	"github.com/Ramsey-B/fern/pkg/ai"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ErrSearchTimeout reports that a semantic search query exceeded its
// deadline. Callers surface this differently from other failures.
var ErrSearchTimeout = errors.New("semantic search timed out")

// SearchKind selects which table a semantic search runs against.
type SearchKind string

const (
	SearchIncentives SearchKind = "incentives"
	SearchCompanies  SearchKind = "companies"
)

// IncentiveHit is an incentive with its similarity to the query in [0,1].
type IncentiveHit struct {
	models.Incentive
	Similarity float64 `json:"similarity" db:"similarity_score"`
}

// CompanyHit is a company with its similarity to the query in [0,1].
type CompanyHit struct {
	models.Company
	Similarity float64 `json:"similarity" db:"similarity_score"`
}

// Stats reports how much of each table carries an embedding.
type Stats struct {
	IncentivesEmbedded int `json:"incentives_with_embeddings" db:"-"`
	CompaniesEmbedded  int `json:"companies_with_embeddings" db:"-"`
}

// Index runs similarity queries over the incentives and companies tables.
// Similarity is cosine: 1 - (embedding <=> query).
type Index struct {
	db       database.DB
	embedder ai.Embedder
	logger   ectologger.Logger
}

func NewIndex(db database.DB, embedder ai.Embedder, logger ectologger.Logger) *Index {
	return &Index{
		db:       db,
		embedder: embedder,
		logger:   logger,
	}
}

// NearestCompanies returns the companies most similar to the incentive's
// embedding, best first. An incentive without an embedding (or an unknown
// id) yields an empty slice, not an error: the caller decides whether that
// is a problem.
func (i *Index) NearestCompanies(ctx context.Context, incentiveID int64, limit int) ([]models.Candidate, error) {
	ctx, span := tracing.StartSpan(ctx, "vector.Index.NearestCompanies")
	defer span.End()

	embedding, ok, err := i.incentiveEmbedding(ctx, incentiveID)
	if err != nil {
		return nil, err
	}
	if !ok {
		i.logger.WithContext(ctx).WithFields(map[string]any{"incentive_id": incentiveID}).Debug("incentive has no embedding, returning no candidates")
		return []models.Candidate{}, nil
	}

	query := `
		SELECT
			id,
			company_name,
			cae_primary_label,
			trade_description_native,
			website,
			created_at,
			1 - (embedding <=> $1) AS similarity_score
		FROM companies
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	`

	var hits []CompanyHit
	if err := i.db.SelectContext(ctx, &hits, query, embedding, limit); err != nil {
		i.logger.WithContext(ctx).WithError(err).Error("nearest companies query failed")
		return nil, err
	}

	candidates := make([]models.Candidate, len(hits))
	for idx, hit := range hits {
		candidates[idx] = models.Candidate{Company: hit.Company, Similarity: hit.Similarity}
	}
	return candidates, nil
}

// NearestIncentives returns the incentives most similar to the company's
// embedding, best first. Same empty-not-error contract as NearestCompanies.
func (i *Index) NearestIncentives(ctx context.Context, companyID int64, limit int) ([]IncentiveHit, error) {
	ctx, span := tracing.StartSpan(ctx, "vector.Index.NearestIncentives")
	defer span.End()

	var embedding pgvector.Vector
	err := i.db.GetContext(ctx, &embedding,
		"SELECT embedding FROM companies WHERE id = $1 AND embedding IS NOT NULL", companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []IncentiveHit{}, nil
		}
		i.logger.WithContext(ctx).WithError(err).Error("failed to load company embedding")
		return nil, err
	}

	query := `
		SELECT
			id,
			title,
			description,
			ai_description,
			ai_description_structured,
			total_budget,
			date_start,
			date_end,
			created_at,
			1 - (embedding <=> $1) AS similarity_score
		FROM incentives
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	`

	var hits []IncentiveHit
	if err := i.db.SelectContext(ctx, &hits, query, embedding, limit); err != nil {
		i.logger.WithContext(ctx).WithError(err).Error("nearest incentives query failed")
		return nil, err
	}
	return hits, nil
}

// SemanticSearch embeds the query text and returns the closest rows from the
// selected table. The timeout covers only the database query, not the
// embedding call. On timeout the error wraps ErrSearchTimeout.
func (i *Index) SemanticSearch(ctx context.Context, query string, kind SearchKind, limit int, timeout time.Duration) ([]IncentiveHit, []CompanyHit, error) {
	ctx, span := tracing.StartSpan(ctx, "vector.Index.SemanticSearch")
	defer span.End()

	queryVector, err := i.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	embedding := pgvector.NewVector(queryVector)

	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch kind {
	case SearchCompanies:
		sqlQuery := `
			SELECT
				id,
				company_name,
				cae_primary_label,
				trade_description_native,
				website,
				created_at,
				1 - (embedding <=> $1) AS similarity_score
			FROM companies
			WHERE embedding IS NOT NULL
			ORDER BY embedding <=> $1
			LIMIT $2
		`
		var hits []CompanyHit
		if err := i.db.SelectContext(queryCtx, &hits, sqlQuery, embedding, limit); err != nil {
			return nil, nil, i.searchError(ctx, queryCtx, err)
		}
		return nil, hits, nil

	default:
		sqlQuery := `
			SELECT
				id,
				title,
				description,
				ai_description,
				ai_description_structured,
				total_budget,
				date_start,
				date_end,
				created_at,
				1 - (embedding <=> $1) AS similarity_score
			FROM incentives
			WHERE embedding IS NOT NULL
			ORDER BY embedding <=> $1
			LIMIT $2
		`
		var hits []IncentiveHit
		if err := i.db.SelectContext(queryCtx, &hits, sqlQuery, embedding, limit); err != nil {
			return nil, nil, i.searchError(ctx, queryCtx, err)
		}
		return hits, nil, nil
	}
}

func (i *Index) searchError(ctx, queryCtx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(queryCtx.Err(), context.DeadlineExceeded) {
		i.logger.WithContext(ctx).Warn("semantic search exceeded its deadline")
		return ErrSearchTimeout
	}
	i.logger.WithContext(ctx).WithError(err).Error("semantic search query failed")
	return err
}

// EmbedCompanies generates and stores embeddings for the given companies.
// Returns the number of rows updated. Rows are updated individually so a
// partial failure keeps the embeddings already written.
func (i *Index) EmbedCompanies(ctx context.Context, companies []models.Company) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "vector.Index.EmbedCompanies")
	defer span.End()

	if len(companies) == 0 {
		return 0, nil
	}

	texts := make([]string, len(companies))
	for idx := range companies {
		texts[idx] = FormatCompanyDocument(&companies[idx])
	}

	vectors, err := i.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, err
	}

	count := 0
	for idx, company := range companies {
		embedding := pgvector.NewVector(vectors[idx])
		if _, err := i.db.ExecContext(ctx, "UPDATE companies SET embedding = $1 WHERE id = $2", embedding, company.ID); err != nil {
			i.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"company_id": company.ID}).Error("failed to store company embedding")
			return count, err
		}
		count++
	}

	i.logger.WithContext(ctx).WithFields(map[string]any{"count": count}).Info("stored company embeddings")
	return count, nil
}

// EmbedIncentives generates and stores embeddings for the given incentives.
func (i *Index) EmbedIncentives(ctx context.Context, incentives []models.Incentive) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "vector.Index.EmbedIncentives")
	defer span.End()

	if len(incentives) == 0 {
		return 0, nil
	}

	texts := make([]string, len(incentives))
	for idx := range incentives {
		texts[idx] = FormatIncentiveDocument(&incentives[idx])
	}

	vectors, err := i.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, err
	}

	count := 0
	for idx, incentive := range incentives {
		embedding := pgvector.NewVector(vectors[idx])
		if _, err := i.db.ExecContext(ctx, "UPDATE incentives SET embedding = $1 WHERE id = $2", embedding, incentive.ID); err != nil {
			i.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"incentive_id": incentive.ID}).Error("failed to store incentive embedding")
			return count, err
		}
		count++
	}

	i.logger.WithContext(ctx).WithFields(map[string]any{"count": count}).Info("stored incentive embeddings")
	return count, nil
}

// EmbeddingStats counts the rows in each table that carry an embedding.
func (i *Index) EmbeddingStats(ctx context.Context) (*Stats, error) {
	ctx, span := tracing.StartSpan(ctx, "vector.Index.EmbeddingStats")
	defer span.End()

	var stats Stats
	if err := i.db.GetContext(ctx, &stats.IncentivesEmbedded, "SELECT COUNT(*) FROM incentives WHERE embedding IS NOT NULL"); err != nil {
		return nil, err
	}
	if err := i.db.GetContext(ctx, &stats.CompaniesEmbedded, "SELECT COUNT(*) FROM companies WHERE embedding IS NOT NULL"); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (i *Index) incentiveEmbedding(ctx context.Context, incentiveID int64) (pgvector.Vector, bool, error) {
	var embedding pgvector.Vector
	err := i.db.GetContext(ctx, &embedding,
		"SELECT embedding FROM incentives WHERE id = $1 AND embedding IS NOT NULL", incentiveID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return embedding, false, nil
		}
		i.logger.WithContext(ctx).WithError(err).Error("failed to load incentive embedding")
		return embedding, false, err
	}
	return embedding, true, nil
}
