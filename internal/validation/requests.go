package validation

import (
	"regexp"
	"strings"

	"github.com/deppfellow/contributions-api/internal/lib/calendar"
	"github.com/go-playground/validator/v10"
)

// usernamePattern follows the host's account name rules: alphanumerics
// separated by single hyphens. Length is checked by the max tag.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+(-[a-zA-Z0-9]+)*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("github_username", func(fl validator.FieldLevel) bool {
		return IsValidUsername(fl.Field().String())
	})
	return v
}

// IsValidUsername reports whether s is a syntactically valid account name.
func IsValidUsername(s string) bool {
	return len(s) <= 39 && usernamePattern.MatchString(s)
}

// ContributionsRequest is the input of the contributions endpoint.
type ContributionsRequest struct {
	Username string `param:"username" validate:"required,max=39,github_username"`
	Format   string `query:"format"`
}

// Validate normalizes the request and checks it.
func (r *ContributionsRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Format = strings.ToLower(strings.TrimSpace(r.Format))

	return validate.Struct(r)
}

// ResponseFormat is the requested calendar shape. Unknown values fall
// back to the default shape.
func (r *ContributionsRequest) ResponseFormat() calendar.Format {
	return calendar.ParseFormat(r.Format)
}
