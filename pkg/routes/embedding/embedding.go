package embedding

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/config"
	companyrepo "github.com/Ramsey-B/fern/internal/repositories/company"
	incentiverepo "github.com/Ramsey-B/fern/internal/repositories/incentive"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/vector"
)

// Register registers embedding maintenance routes
func Register(g *echo.Group) {
	g.POST("/companies", EmbedCompanies)
	g.POST("/incentives", EmbedIncentives)
	g.GET("/stats", Stats)
}

// EmbedCompanies embeds the next batch of companies missing a vector
func EmbedCompanies(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "embedding_handler.EmbedCompanies")
	defer span.End()

	ctx, cfg, err := ectoinject.GetContext[*config.Config](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ctx, repo, err := ectoinject.GetContext[*companyrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ctx, index, err := ectoinject.GetContext[*vector.Index](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	companies, err := repo.ListMissingEmbeddings(ctx, cfg.EmbeddingBatchSize)
	if err != nil {
		return err
	}

	embedded, err := index.EmbedCompanies(ctx, companies)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadGateway, "embedding failed")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"embedded":  embedded,
		"remaining": len(companies) - embedded,
	})
}

// EmbedIncentives embeds the next batch of incentives missing a vector
func EmbedIncentives(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "embedding_handler.EmbedIncentives")
	defer span.End()

	ctx, cfg, err := ectoinject.GetContext[*config.Config](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ctx, repo, err := ectoinject.GetContext[*incentiverepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ctx, index, err := ectoinject.GetContext[*vector.Index](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	incentives, err := repo.ListMissingEmbeddings(ctx, cfg.EmbeddingBatchSize)
	if err != nil {
		return err
	}

	embedded, err := index.EmbedIncentives(ctx, incentives)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadGateway, "embedding failed")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"embedded":  embedded,
		"remaining": len(incentives) - embedded,
	})
}

// Stats reports how many rows currently carry an embedding
func Stats(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "embedding_handler.Stats")
	defer span.End()

	ctx, index, err := ectoinject.GetContext[*vector.Index](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	stats, err := index.EmbeddingStats(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, stats)
}
