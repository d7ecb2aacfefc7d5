package search

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/vector"
)

// Register registers semantic search routes
func Register(g *echo.Group) {
	g.GET("", Search)
}

// Search runs a free-text semantic query against incentives or companies
func Search(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "search_handler.Search")
	defer span.End()

	query := c.QueryParam("q")
	if query == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "q query parameter is required")
	}

	kind := vector.SearchIncentives
	if c.QueryParam("kind") == string(vector.SearchCompanies) {
		kind = vector.SearchCompanies
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	ctx, cfg, err := ectoinject.GetContext[*config.Config](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ctx, index, err := ectoinject.GetContext[*vector.Index](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	incentives, companies, err := index.SemanticSearch(ctx, query, kind, limit, cfg.SemanticSearchTimeout)
	if err != nil {
		if errors.Is(err, vector.ErrSearchTimeout) {
			return httperror.NewHTTPError(http.StatusGatewayTimeout, "search timed out")
		}
		return httperror.NewHTTPError(http.StatusBadGateway, "search failed")
	}

	if kind == vector.SearchCompanies {
		return c.JSON(http.StatusOK, map[string]any{"kind": kind, "results": companies})
	}
	return c.JSON(http.StatusOK, map[string]any{"kind": kind, "results": incentives})
}
