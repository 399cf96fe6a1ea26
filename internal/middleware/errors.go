package middleware

import (
	"context"
	"errors"

	"github.com/deppfellow/contributions-api/internal/errs"
	"github.com/deppfellow/contributions-api/internal/lib/github"
)

var userNotFoundCode = "USER_NOT_FOUND"

// HandleError converts a domain error into the HTTPError clients see.
// Anything unrecognised becomes the generic fetch failure so upstream
// details never leak into responses.
func HandleError(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	switch {
	case errors.Is(err, github.ErrUserNotFound):
		return errs.NewNotFoundError("User not found", true, &userNotFoundCode)
	case errors.Is(err, context.Canceled):
		return errs.NewFetchFailedError().WithMessage("Request canceled")
	default:
		return errs.NewFetchFailedError()
	}
}
