package company

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/tracing"

	"github.com/Ramsey-B/fern/pkg/models"
)

var selectColumns = []string{"id", "company_name", "cae_primary_label", "trade_description_native", "website", "created_at"}

// Repository handles company persistence
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

// Get retrieves a company by ID
func (r *Repository) Get(ctx context.Context, id int64) (*models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(selectColumns...)
	sb.From("companies")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var company models.Company
	if err := r.db.GetContext(ctx, &company, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("company %d not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"company_id": id}).Error("Failed to get company")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get company")
	}

	return &company, nil
}

// List retrieves a page of companies
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.List")
	defer span.End()

	if limit < 1 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	sb := database.NewSelectBuilder()
	sb.Select(selectColumns...)
	sb.From("companies")
	sb.OrderBy("id")
	sb.Limit(limit)
	sb.Offset(offset)

	query, args := sb.Build()
	var companies []models.Company
	if err := r.db.SelectContext(ctx, &companies, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list companies")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list companies")
	}

	return companies, nil
}

// ListAll retrieves every company. Intended for the prefilter path; the
// companies table is large, so callers should prefer List unless they truly
// need the whole pool.
func (r *Repository) ListAll(ctx context.Context) ([]models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.ListAll")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(selectColumns...)
	sb.From("companies")
	sb.OrderBy("id")

	query, args := sb.Build()
	var companies []models.Company
	if err := r.db.SelectContext(ctx, &companies, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list all companies")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list companies")
	}

	return companies, nil
}

// ListMissingEmbeddings retrieves companies that have not been embedded yet
func (r *Repository) ListMissingEmbeddings(ctx context.Context, limit int) ([]models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.ListMissingEmbeddings")
	defer span.End()

	if limit < 1 {
		limit = 100
	}

	sb := database.NewSelectBuilder()
	sb.Select(selectColumns...)
	sb.From("companies")
	sb.Where("embedding IS NULL")
	sb.OrderBy("id")
	sb.Limit(limit)

	query, args := sb.Build()
	var companies []models.Company
	if err := r.db.SelectContext(ctx, &companies, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list companies missing embeddings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list companies")
	}

	return companies, nil
}

// CreateBatch inserts companies in one statement, skipping rows whose name
// already exists. Returns the number of rows actually inserted so callers
// can report how many were new.
func (r *Repository) CreateBatch(ctx context.Context, reqs []models.CreateCompanyRequest) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.CreateBatch")
	defer span.End()

	if len(reqs) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	ib := database.NewInsertBuilder()
	ib.InsertInto("companies")
	ib.Cols("company_name", "cae_primary_label", "trade_description_native", "website", "created_at")
	for _, req := range reqs {
		ib.Values(req.Name, req.CAEPrimaryLabel, req.TradeDescription, req.Website, now)
	}
	ib.OnConflictDoNothing()

	query, args := ib.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"count": len(reqs)}).Error("Failed to import companies")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to import companies")
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

// Count returns the total number of companies
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.Count")
	defer span.End()

	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM companies"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count companies")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count companies")
	}

	return count, nil
}
