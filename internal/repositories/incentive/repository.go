package incentive

import (
	"context"
	"database/sql"
	"encoding/json"
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

// selectColumns deliberately omits the embedding column; vectors are large
// and only pkg/vector reads them.
var selectColumns = []string{"id", "title", "description", "ai_description", "ai_description_structured", "total_budget", "date_start", "date_end", "created_at"}

// Repository handles incentive persistence
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

// Get retrieves an incentive by ID
func (r *Repository) Get(ctx context.Context, id int64) (*models.Incentive, error) {
	ctx, span := tracing.StartSpan(ctx, "incentive.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(selectColumns...)
	sb.From("incentives")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var incentive models.Incentive
	if err := r.db.GetContext(ctx, &incentive, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("incentive %d not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"incentive_id": id}).Error("Failed to get incentive")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get incentive")
	}

	return &incentive, nil
}

// ListAll retrieves every incentive, oldest first
func (r *Repository) ListAll(ctx context.Context) ([]models.Incentive, error) {
	ctx, span := tracing.StartSpan(ctx, "incentive.Repository.ListAll")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(selectColumns...)
	sb.From("incentives")
	sb.OrderBy("id")

	query, args := sb.Build()
	var incentives []models.Incentive
	if err := r.db.SelectContext(ctx, &incentives, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list incentives")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list incentives")
	}

	return incentives, nil
}

// List retrieves a page of incentives
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.Incentive, error) {
	ctx, span := tracing.StartSpan(ctx, "incentive.Repository.List")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	sb := database.NewSelectBuilder()
	sb.Select(selectColumns...)
	sb.From("incentives")
	sb.OrderBy("id")
	sb.Limit(limit)
	sb.Offset(offset)

	query, args := sb.Build()
	var incentives []models.Incentive
	if err := r.db.SelectContext(ctx, &incentives, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list incentives")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list incentives")
	}

	return incentives, nil
}

// ListMissingEmbeddings retrieves incentives that have not been embedded yet
func (r *Repository) ListMissingEmbeddings(ctx context.Context, limit int) ([]models.Incentive, error) {
	ctx, span := tracing.StartSpan(ctx, "incentive.Repository.ListMissingEmbeddings")
	defer span.End()

	if limit < 1 {
		limit = 100
	}

	sb := database.NewSelectBuilder()
	sb.Select(selectColumns...)
	sb.From("incentives")
	sb.Where("embedding IS NULL")
	sb.OrderBy("id")
	sb.Limit(limit)

	query, args := sb.Build()
	var incentives []models.Incentive
	if err := r.db.SelectContext(ctx, &incentives, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list incentives missing embeddings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list incentives")
	}

	return incentives, nil
}

// Create inserts a new incentive
func (r *Repository) Create(ctx context.Context, req *models.CreateIncentiveRequest) (*models.Incentive, error) {
	ctx, span := tracing.StartSpan(ctx, "incentive.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	ib := database.NewInsertBuilder()
	ib.InsertInto("incentives")
	ib.Cols("title", "description", "ai_description", "total_budget", "date_start", "date_end", "created_at")
	ib.Values(req.Title, req.Description, req.AIDescription, req.TotalBudget, req.DateStart, req.DateEnd, now)
	ib.Returning("id")

	query, args := ib.Build()
	var id int64
	if err := r.db.GetContext(ctx, &id, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create incentive")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create incentive")
	}

	return &models.Incentive{
		ID:            id,
		Title:         req.Title,
		Description:   req.Description,
		AIDescription: req.AIDescription,
		TotalBudget:   req.TotalBudget,
		DateStart:     req.DateStart,
		DateEnd:       req.DateEnd,
		CreatedAt:     now,
	}, nil
}

// UpdateStructuredDescription stores the extracted structured metadata
func (r *Repository) UpdateStructuredDescription(ctx context.Context, id int64, structured *models.StructuredDescription) error {
	ctx, span := tracing.StartSpan(ctx, "incentive.Repository.UpdateStructuredDescription")
	defer span.End()

	payload, err := json.Marshal(structured)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to encode structured description")
	}

	ub := database.NewUpdateBuilder()
	ub.Update("incentives")
	ub.Set(ub.Assign("ai_description_structured", payload))
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"incentive_id": id}).Error("Failed to update structured description")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update structured description")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("incentive %d not found", id))
	}

	return nil
}
