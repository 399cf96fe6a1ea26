package router

import (
	"net/http"

	"github.com/deppfellow/contributions-api/internal/handler"
	"github.com/deppfellow/contributions-api/internal/middleware"
	"github.com/labstack/echo/v4"
)

// apiPrefixes are the mount points of the contributions API. The upper
// case variant is kept for clients of the original deployment.
var apiPrefixes = []string{"/api/v1", "/api/V1"}

func registerContributionRoutes(r *echo.Echo, h *handler.Handlers, mw *middleware.Middlewares) {
	getContributions := handler.Handle(
		h.Contributions.Handler,
		h.Contributions.GetContributions,
		http.StatusOK,
		handler.NewContributionsRequest,
	)

	for _, prefix := range apiPrefixes {
		api := r.Group(prefix, mw.RateLimit.Limit())

		api.GET("/:username", getContributions)
		// No username at all still gets the validation error.
		api.GET("/", getContributions)
		api.GET("", getContributions)
	}
}
