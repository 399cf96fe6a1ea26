// Package handler is the first layer after the router.
//
// It binds requests, validates them through the validation package,
// and calls the appropriate service.
package handler

import (
	"github.com/deppfellow/contributions-api/internal/server"
	"github.com/deppfellow/contributions-api/internal/service"
)

// Handlers groups all HTTP handlers.
type Handlers struct {
	Contributions *ContributionHandler
	Health        *HealthHandler
	OpenAPI       *OpenAPIHandler
	Metrics       *MetricsHandler
}

// NewHandlers constructs the handler container.
func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	var upstream Pinger
	if services.Scraper != nil {
		upstream = services.Scraper
	}

	return &Handlers{
		Contributions: NewContributionHandler(s, services.Contributions),
		Health:        NewHealthHandler(s, upstream),
		OpenAPI:       NewOpenAPIHandler(s),
		Metrics:       NewMetricsHandler(s),
	}
}
