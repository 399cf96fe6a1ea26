package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/contributions-api/internal/errs"
	"github.com/deppfellow/contributions-api/internal/lib/calendar"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bind(t *testing.T, username, rawQuery string) (*ContributionsRequest, error) {
	t.Helper()
	e := echo.New()
	target := "/api/v1/" + username
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	c.SetPath("/api/v1/:username")
	c.SetParamNames("username")
	c.SetParamValues(username)

	req := &ContributionsRequest{}
	return req, BindAndValidate(c, req)
}

func TestIsValidUsername(t *testing.T) {
	for _, name := range []string{"octocat", "a", "A-b-C", "user123", strings.Repeat("a", 39)} {
		assert.True(t, IsValidUsername(name), name)
	}
	for _, name := range []string{"", "-lead", "trail-", "dou--ble", "has space", "dot.name", strings.Repeat("a", 40)} {
		assert.False(t, IsValidUsername(name), name)
	}
}

func TestBindAndValidate_Valid(t *testing.T) {
	req, err := bind(t, "octocat", "format=Nested")
	require.NoError(t, err)

	assert.Equal(t, "octocat", req.Username)
	assert.Equal(t, calendar.FormatNested, req.ResponseFormat())
}

func TestBindAndValidate_DefaultFormat(t *testing.T) {
	req, err := bind(t, "octocat", "")
	require.NoError(t, err)
	assert.Equal(t, calendar.FormatDefault, req.ResponseFormat())

	req, err = bind(t, "octocat", "format=flat")
	require.NoError(t, err)
	assert.Equal(t, calendar.FormatFlat, req.ResponseFormat())
}

func TestBindAndValidate_MissingUsername(t *testing.T) {
	_, err := bind(t, "", "")

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, "Username is required", httpErr.Message)
	require.Len(t, httpErr.Errors, 1)
	assert.Equal(t, "username", httpErr.Errors[0].Field)
}

func TestBindAndValidate_InvalidUsername(t *testing.T) {
	_, err := bind(t, "bad--name", "")

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.True(t, strings.HasPrefix(httpErr.Message, "Username may only contain"), httpErr.Message)
}

func TestBindAndValidate_UnknownFormatIsDefault(t *testing.T) {
	for _, query := range []string{"format=xml", "format=json", "format=tree"} {
		req, err := bind(t, "octocat", query)
		require.NoError(t, err, query)
		assert.Equal(t, calendar.FormatDefault, req.ResponseFormat(), query)
	}
}

func TestExtractValidationError_Custom(t *testing.T) {
	msg, fieldErrors := extractValidationError(CustomValidationErrors{
		{Field: "rate_limit", Message: "is off"},
	})
	assert.Equal(t, "Rate Limit is off", msg)
	assert.Len(t, fieldErrors, 1)
}
