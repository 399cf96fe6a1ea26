package handler

import (
	"github.com/deppfellow/contributions-api/internal/server"
	"github.com/labstack/echo/v4"
)

// MetricsHandler serves the Prometheus registry.
type MetricsHandler struct {
	Handler
}

func NewMetricsHandler(s *server.Server) *MetricsHandler {
	return &MetricsHandler{Handler: NewHandler(s)}
}

func (h *MetricsHandler) ServeMetrics(c echo.Context) error {
	h.server.Metrics.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}
