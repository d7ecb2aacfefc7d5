package matching

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	companyrepo "github.com/Ramsey-B/fern/internal/repositories/company"
	matchrepo "github.com/Ramsey-B/fern/internal/repositories/match"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New()

// Register registers matching routes
func Register(g *echo.Group) {
	g.POST("/run", Run)
	g.POST("/batch", RunBatch)
	g.GET("/incentive/:id", ListForIncentive)
	g.GET("/company/:id", ListForCompany)
	g.GET("/stats", Stats)
	g.DELETE("/incentive/:id", ClearForIncentive)
	g.DELETE("", ClearAll)
}

// RunRequest triggers matching for one incentive
type RunRequest struct {
	IncentiveID int64 `json:"incentive_id" validate:"required,gt=0"`
}

// RunResponse is the result of a single matching run
type RunResponse struct {
	IncentiveID    int64          `json:"incentive_id"`
	Matches        []models.Match `json:"matches"`
	TotalCost      float64        `json:"total_cost"`
	ProcessingTime float64        `json:"processing_time"`
}

// BatchRequest triggers matching for all incentives
type BatchRequest struct {
	MaxTotalCost *float64 `json:"max_total_cost,omitempty"`
	ForceRefresh bool     `json:"force_refresh"`
}

// Run executes the matching pipeline for one incentive and persists the results
func Run(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "matching_handler.Run")
	defer span.End()

	var req RunRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, service, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	start := time.Now()
	matches, cost, err := service.MatchAndPersist(ctx, req.IncentiveID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, RunResponse{
		IncentiveID:    req.IncentiveID,
		Matches:        matches,
		TotalCost:      cost,
		ProcessingTime: time.Since(start).Seconds(),
	})
}

// RunBatch executes matching for every incentive sequentially
func RunBatch(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "matching_handler.RunBatch")
	defer span.End()

	var req BatchRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.ForceRefresh {
		ctx2, repo, err := ectoinject.GetContext[*matchrepo.Repository](ctx)
		if err != nil {
			return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
		}
		ctx = ctx2
		if err := repo.DeleteAll(ctx); err != nil {
			return err
		}
	}

	ctx, service, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	summary, err := service.MatchAll(ctx, req.MaxTotalCost)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, summary)
}

// ListForIncentive returns stored matches for an incentive with company details
func ListForIncentive(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "matching_handler.ListForIncentive")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid incentive id")
	}

	ctx, repo, err := ectoinject.GetContext[*matchrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	matches, err := repo.ListByIncentive(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, matches)
}

// ListForCompany returns stored matches involving a company
func ListForCompany(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "matching_handler.ListForCompany")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid company id")
	}

	ctx, repo, err := ectoinject.GetContext[*matchrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	matches, err := repo.ListByCompany(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, matches)
}

// StatsResponse summarizes the stored match table
type StatsResponse struct {
	TotalMatches   int `json:"total_matches"`
	TotalCompanies int `json:"total_companies"`
}

// Stats reports how many matches are stored against how many companies
func Stats(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "matching_handler.Stats")
	defer span.End()

	ctx, matches, err := ectoinject.GetContext[*matchrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, companies, err := ectoinject.GetContext[*companyrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	matchCount, err := matches.Count(ctx)
	if err != nil {
		return err
	}
	companyCount, err := companies.Count(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, StatsResponse{
		TotalMatches:   matchCount,
		TotalCompanies: companyCount,
	})
}

// ClearForIncentive deletes the stored matches for one incentive
func ClearForIncentive(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "matching_handler.ClearForIncentive")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid incentive id")
	}

	ctx, repo, err := ectoinject.GetContext[*matchrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.DeleteByIncentive(ctx, id); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}

// ClearAll deletes every stored match
func ClearAll(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "matching_handler.ClearAll")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*matchrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.DeleteAll(ctx); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}
