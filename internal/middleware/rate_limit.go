package middleware

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/deppfellow/contributions-api/internal/errs"
	"github.com/deppfellow/contributions-api/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const (
	rateLimitPrefix = "contributions:ratelimit"

	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// RateLimitMiddleware limits requests per client IP. limiter is nil when
// rate limiting is disabled.
type RateLimitMiddleware struct {
	server  *server.Server
	limiter *limiter.Limiter
	now     func() time.Time
}

// NewRateLimitMiddleware builds the limiter on the configured store.
func NewRateLimitMiddleware(s *server.Server) (*RateLimitMiddleware, error) {
	rl := &RateLimitMiddleware{server: s, now: time.Now}

	cfg := s.Config.RateLimit
	if !cfg.Enabled {
		return rl, nil
	}

	var store limiter.Store
	switch cfg.Store {
	case "redis":
		if s.Redis == nil {
			return nil, fmt.Errorf("rate limit store is redis but no redis client is configured")
		}
		var err error
		store, err = sredis.NewStoreWithOptions(s.Redis, limiter.StoreOptions{
			Prefix: rateLimitPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
		}
	default:
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          rateLimitPrefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		})
	}

	rate := limiter.Rate{
		Period: cfg.Period,
		Limit:  cfg.Requests,
	}
	rl.limiter = limiter.New(store, rate, limiter.WithTrustForwardHeader(cfg.TrustForwardHeader))

	return rl, nil
}

// Limit rejects clients over their quota with a 429. Store failures let
// the request through.
func (r *RateLimitMiddleware) Limit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if r.limiter == nil {
			return next
		}

		return func(c echo.Context) error {
			key := r.limiter.GetIPKey(c.Request())

			lctx, err := r.limiter.Get(c.Request().Context(), key)
			if err != nil {
				GetLogger(c).Warn().Err(err).Msg("rate limiter unavailable, allowing request")
				return next(c)
			}

			h := c.Response().Header()
			h.Set(HeaderRateLimitLimit, strconv.FormatInt(lctx.Limit, 10))
			h.Set(HeaderRateLimitRemaining, strconv.FormatInt(lctx.Remaining, 10))
			h.Set(HeaderRateLimitReset, strconv.FormatInt(lctx.Reset, 10))

			if lctx.Reached {
				retryAfter := r.retryAfter(lctx.Reset)
				h.Set(echo.HeaderRetryAfter, strconv.FormatInt(retryAfter, 10))
				r.RecordRateLimitHit(c.Path())
				return errs.NewTooManyRequestsError(retryAfter)
			}

			return next(c)
		}
	}
}

// retryAfter converts the reset unix time into whole seconds from now,
// at least one.
func (r *RateLimitMiddleware) retryAfter(reset int64) int64 {
	seconds := math.Ceil(time.Unix(reset, 0).Sub(r.now()).Seconds())
	if seconds < 1 {
		return 1
	}
	return int64(seconds)
}

// RecordRateLimitHit counts a rejected request and, when New Relic is
// enabled, records a custom event for it.
func (r *RateLimitMiddleware) RecordRateLimitHit(endpoint string) {
	if r.server.Metrics != nil {
		r.server.Metrics.RecordRateLimitHit(endpoint)
	}

	if app := r.server.LoggerService.GetApplication(); app != nil {
		app.RecordCustomEvent("RateLimitHit", map[string]any{
			"endpoint": endpoint,
		})
	}
}
