package company

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	companyrepo "github.com/Ramsey-B/fern/internal/repositories/company"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/vector"
)

var validate = validator.New()

// Register registers company routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("/import", Import)
	g.GET("/:id", Get)
	g.GET("/:id/incentives", SimilarIncentives)
}

// ImportResponse reports the outcome of a company import
type ImportResponse struct {
	Received int `json:"received"`
	Imported int `json:"imported"`
}

// Import bulk-inserts companies, skipping names that already exist
func Import(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "company_handler.Import")
	defer span.End()

	var reqs []models.CreateCompanyRequest
	if err := c.Bind(&reqs); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(reqs) == 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "empty company list")
	}
	for _, req := range reqs {
		if err := validate.Struct(req); err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	ctx, repo, err := ectoinject.GetContext[*companyrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	inserted, err := repo.CreateBatch(ctx, reqs)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ImportResponse{
		Received: len(reqs),
		Imported: inserted,
	})
}

// List returns a page of companies
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "company_handler.List")
	defer span.End()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	ctx, repo, err := ectoinject.GetContext[*companyrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	companies, err := repo.List(ctx, limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, companies)
}

// Get returns a single company by ID
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "company_handler.Get")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid company id")
	}

	ctx, repo, err := ectoinject.GetContext[*companyrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	company, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, company)
}

// SimilarIncentives returns the incentives closest to a company's embedding.
// An unembedded company yields an empty list, not an error.
func SimilarIncentives(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "company_handler.SimilarIncentives")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid company id")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	ctx, index, err := ectoinject.GetContext[*vector.Index](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	incentives, err := index.NearestIncentives(ctx, id, limit)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to find similar incentives")
	}

	return c.JSON(http.StatusOK, incentives)
}
