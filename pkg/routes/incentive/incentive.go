package incentive

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	incentiverepo "github.com/Ramsey-B/fern/internal/repositories/incentive"
	"github.com/Ramsey-B/fern/pkg/ai"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New()

// Register registers incentive routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.GET("/:id", Get)
	g.POST("/:id/describe", GenerateDescription)
}

// List returns a page of incentives
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "incentive_handler.List")
	defer span.End()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	ctx, repo, err := ectoinject.GetContext[*incentiverepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	incentives, err := repo.List(ctx, limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, incentives)
}

// Get returns a single incentive by ID
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "incentive_handler.Get")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid incentive id")
	}

	ctx, repo, err := ectoinject.GetContext[*incentiverepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	incentive, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, incentive)
}

// Create inserts a new incentive
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "incentive_handler.Create")
	defer span.End()

	var req models.CreateIncentiveRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*incentiverepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	incentive, err := repo.Create(ctx, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, incentive)
}

// GenerateDescription extracts and stores structured metadata for an incentive
func GenerateDescription(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "incentive_handler.GenerateDescription")
	defer span.End()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid incentive id")
	}

	ctx, repo, err := ectoinject.GetContext[*incentiverepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	incentive, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	ctx, generator, err := ectoinject.GetContext[*ai.DescriptionGenerator](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	structured, cost, err := generator.Generate(ctx, incentive)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadGateway, "description generation failed")
	}

	if err := repo.UpdateStructuredDescription(ctx, id, structured); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"incentive_id": id,
		"structured":   structured,
		"cost":         cost,
	})
}
