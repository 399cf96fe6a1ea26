package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deppfellow/contributions-api/internal/config"
	"github.com/deppfellow/contributions-api/internal/errs"
	"github.com/deppfellow/contributions-api/internal/lib/github"
	"github.com/deppfellow/contributions-api/internal/lib/jsoncodec"
	"github.com/deppfellow/contributions-api/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *server.Server {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	logger := zerolog.Nop()

	s, err := server.New(cfg, &logger, nil)
	require.NoError(t, err)
	return s
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errs.HTTPError {
	t.Helper()
	var body errs.HTTPError
	require.NoError(t, jsoncodec.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func runErrorHandler(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	global := NewGlobalMiddlewares(newTestServer(t, nil))

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/octocat", nil), rec)
	global.GlobalErrorHandler(err, c)
	return rec
}

func TestHandleError(t *testing.T) {
	notFound := HandleError(fmt.Errorf("fetch years: %w", github.ErrUserNotFound)).(*errs.HTTPError)
	assert.Equal(t, http.StatusNotFound, notFound.Status)
	assert.Equal(t, "USER_NOT_FOUND", notFound.Code)

	upstream := HandleError(&github.UpstreamError{Status: http.StatusBadGateway}).(*errs.HTTPError)
	assert.Equal(t, http.StatusInternalServerError, upstream.Status)
	assert.Equal(t, errs.FetchFailedMessage, upstream.Message)

	tooLarge := HandleError(fmt.Errorf("get /octocat: %w", github.ErrBodyTooLarge)).(*errs.HTTPError)
	assert.Equal(t, "FETCH_FAILED", tooLarge.Code)

	passthrough := errs.NewBadRequestError("bad", true, nil, nil, nil)
	assert.Same(t, passthrough, HandleError(passthrough))
}

func TestGlobalErrorHandler_UserNotFound(t *testing.T) {
	rec := runErrorHandler(t, github.ErrUserNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "USER_NOT_FOUND", body.Code)
	assert.Equal(t, "User not found", body.Message)
}

func TestGlobalErrorHandler_UnknownErrorIsGeneric(t *testing.T) {
	rec := runErrorHandler(t, errors.New("dial tcp 10.0.0.1:443: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "FETCH_FAILED", body.Code)
	assert.Equal(t, "Failed to fetch data", body.Message)
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
}

func TestGlobalErrorHandler_HidesUnsafeServerMessages(t *testing.T) {
	rec := runErrorHandler(t, &errs.HTTPError{
		Code:    "INTERNAL",
		Message: "secret detail",
		Status:  http.StatusInternalServerError,
	})

	body := decodeError(t, rec)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), body.Message)
}

func TestGlobalErrorHandler_RouteNotFound(t *testing.T) {
	rec := runErrorHandler(t, echo.ErrNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", decodeError(t, rec).Message)
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	handler := RequestID()(func(c echo.Context) error {
		return c.String(http.StatusOK, GetRequestID(c))
	})

	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	generated := rec.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestEnhanceContext(t *testing.T) {
	s := newTestServer(t, nil)
	e := echo.New()

	var fromEcho, fromCtx *zerolog.Logger
	handler := NewContextEnhancer(s).EnhanceContext()(func(c echo.Context) error {
		fromEcho = GetLogger(c)
		fromCtx = LoggerFromContext(c.Request().Context(), nil)
		return nil
	})

	require.NoError(t, handler(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())))
	require.NotNil(t, fromEcho)
	assert.Same(t, fromEcho, fromCtx)

	fallback := zerolog.Nop()
	assert.Same(t, &fallback, LoggerFromContext(context.Background(), &fallback))
}

func TestRateLimit_Disabled(t *testing.T) {
	rl, err := NewRateLimitMiddleware(newTestServer(t, nil))
	require.NoError(t, err)
	assert.Nil(t, rl.limiter)
}

func TestRateLimit_RedisStoreWithoutClient(t *testing.T) {
	s := newTestServer(t, nil)
	s.Config.RateLimit.Enabled = true
	s.Config.RateLimit.Store = "redis"

	_, err := NewRateLimitMiddleware(s)
	assert.Error(t, err)
}

func TestRateLimit_MemoryStore(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.Requests = 2
	})
	rl, err := NewRateLimitMiddleware(s)
	require.NoError(t, err)

	e := echo.New()
	handler := rl.Limit()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	call := func(ip string) (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/octocat", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		return rec, handler(e.NewContext(req, rec))
	}

	for i := 0; i < 2; i++ {
		rec, err := call("10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec, err := call("10.0.0.1")
	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Status)
	assert.Equal(t, "0", rec.Header().Get(HeaderRateLimitRemaining))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderRetryAfter))

	rec, err = call("10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, "1", rec.Header().Get(HeaderRateLimitRemaining))
}
