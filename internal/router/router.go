// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares and defines the API route groups,
// mapping specific paths to their corresponding handlers.
package router

import (
	"github.com/deppfellow/contributions-api/internal/handler"
	"github.com/deppfellow/contributions-api/internal/lib/jsoncodec"
	"github.com/deppfellow/contributions-api/internal/middleware"
	"github.com/labstack/echo/v4"
)

// NewRouter builds the Echo instance with the global middleware chain and
// every route registered.
func NewRouter(h *handler.Handlers, mw *middleware.Middlewares) *echo.Echo {
	router := echo.New()
	router.HideBanner = true
	router.HidePort = true

	router.JSONSerializer = jsoncodec.Serializer{}
	router.HTTPErrorHandler = mw.Global.GlobalErrorHandler

	// Order matters: the request ID and the New Relic transaction must
	// exist before the context logger is built, and the request logger
	// reads that logger.
	router.Use(
		middleware.RequestID(),
		mw.Tracing.NewRelicMiddleware(),
		mw.Tracing.EnhanceTracing(),
		mw.ContextEnhancer.EnhanceContext(),
		mw.Global.CORS(),
		mw.Global.Secure(),
		mw.Global.RequestLogger(),
		mw.Global.Recover(),
	)

	registerSystemRoutes(router, h)
	registerContributionRoutes(router, h, mw)

	return router
}
