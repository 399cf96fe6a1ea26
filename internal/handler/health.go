package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/deppfellow/contributions-api/internal/middleware"
	"github.com/deppfellow/contributions-api/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Pinger reports whether the upstream profile host is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler exposes the /status endpoint for load balancers and
// uptime monitors.
type HealthHandler struct {
	Handler
	upstream Pinger
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(s *server.Server, upstream Pinger) *HealthHandler {
	return &HealthHandler{
		Handler:  NewHandler(s),
		upstream: upstream,
	}
}

type checkResult struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time"`
	Error        string `json:"error,omitempty"`
}

type healthResponse struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Environment string                 `json:"environment"`
	Checks      map[string]checkResult `json:"checks"`
}

// CheckHealth runs the configured checks.
//
// An unreachable upstream makes the service unhealthy (503). Redis only
// backs the cache, so losing it degrades the service but still answers 200.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()
	cfg := h.server.Config.Observability.HealthChecks

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	response := healthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		Environment: h.server.Config.Primary.Env,
		Checks:      make(map[string]checkResult),
	}

	if !cfg.Enabled {
		return c.JSON(http.StatusOK, response)
	}

	if h.server.Redis != nil && h.server.Config.Observability.HasCheck("redis") {
		result := h.runCheck(c.Request().Context(), &logger, "redis", cfg.Timeout, func(ctx context.Context) error {
			return h.server.Redis.Ping(ctx).Err()
		})
		response.Checks["redis"] = result
		if result.Status != "healthy" {
			response.Status = "degraded"
		}
	}

	isHealthy := true
	if h.upstream != nil && h.server.Config.Observability.HasCheck("upstream") {
		result := h.runCheck(c.Request().Context(), &logger, "upstream", cfg.Timeout, h.upstream.Ping)
		response.Checks["upstream"] = result
		if result.Status != "healthy" {
			isHealthy = false
		}
	}

	if !isHealthy {
		response.Status = "unhealthy"

		logger.Warn().
			Dur("total_duration", time.Since(start)).
			Msg("health check failed")

		h.recordHealthEvent(map[string]any{
			"check_type":        "overall",
			"operation":         "health_check",
			"error_type":        "overall_unhealthy",
			"total_duration_ms": time.Since(start).Milliseconds(),
		})

		return c.JSON(http.StatusServiceUnavailable, response)
	}

	logger.Debug().
		Dur("total_duration", time.Since(start)).
		Msg("health check passed")

	return c.JSON(http.StatusOK, response)
}

func (h *HealthHandler) runCheck(
	parent context.Context,
	logger *zerolog.Logger,
	name string,
	timeout time.Duration,
	check func(ctx context.Context) error,
) checkResult {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	checkStart := time.Now()
	err := check(ctx)
	elapsed := time.Since(checkStart)

	if err != nil {
		logger.Error().
			Err(err).
			Str("check", name).
			Dur("response_time", elapsed).
			Msg("health check failed")

		h.recordHealthEvent(map[string]any{
			"check_type":       name,
			"operation":        "health_check",
			"error_type":       name + "_unhealthy",
			"response_time_ms": elapsed.Milliseconds(),
			"error_message":    err.Error(),
		})

		return checkResult{
			Status:       "unhealthy",
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}

	return checkResult{
		Status:       "healthy",
		ResponseTime: elapsed.String(),
	}
}

func (h *HealthHandler) recordHealthEvent(attrs map[string]any) {
	if app := h.server.LoggerService.GetApplication(); app != nil {
		app.RecordCustomEvent("HealthCheckError", attrs)
	}
}
