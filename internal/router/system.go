package router

import (
	"net/http"

	"github.com/deppfellow/contributions-api/internal/handler"
	"github.com/labstack/echo/v4"
)

// registerSystemRoutes registers endpoints that are not part of the API:
// health, metrics, and the documentation page with its assets.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/status", h.Health.CheckHealth)
	r.GET("/metrics", h.Metrics.ServeMetrics)

	r.GET("/static/openapi.json", h.OpenAPI.ServeOpenAPISpec)
	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)

	r.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/docs")
	})
}
