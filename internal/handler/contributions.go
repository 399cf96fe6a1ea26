package handler

import (
	"context"

	"github.com/deppfellow/contributions-api/internal/lib/calendar"
	"github.com/deppfellow/contributions-api/internal/server"
	"github.com/deppfellow/contributions-api/internal/validation"
	"github.com/labstack/echo/v4"
)

// ContributionGetter returns a user's calendar in the requested shape.
type ContributionGetter interface {
	Get(ctx context.Context, username string, format calendar.Format) (any, error)
}

// ContributionHandler serves the contributions endpoint.
type ContributionHandler struct {
	Handler
	contributions ContributionGetter
}

func NewContributionHandler(s *server.Server, contributions ContributionGetter) *ContributionHandler {
	return &ContributionHandler{
		Handler:       NewHandler(s),
		contributions: contributions,
	}
}

// NewContributionsRequest allocates the request bound by GetContributions.
func NewContributionsRequest() *validation.ContributionsRequest {
	return &validation.ContributionsRequest{}
}

// GetContributions returns the calendar of req.Username. Successful
// responses may be cached by shared caches for the cache TTL.
func (h *ContributionHandler) GetContributions(c echo.Context, req *validation.ContributionsRequest) (any, error) {
	result, err := h.contributions.Get(c.Request().Context(), req.Username, req.ResponseFormat())
	if err != nil {
		return nil, err
	}

	c.Response().Header().Set("Cache-Control", h.server.Config.Cache.CacheControl())
	return result, nil
}
