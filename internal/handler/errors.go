package handler

import (
	"errors"
	"net/http"

	"vibecheck/internal/app/gateway"
	"vibecheck/internal/app/prefsync"
	"vibecheck/internal/app/session"
	"vibecheck/internal/pkg/errs"
	"vibecheck/internal/pkg/resp"
)

// toCustomError maps domain errors onto the response envelope.
func toCustomError(err error) *errs.CustomError {
	var (
		customErr  *errs.CustomError
		httpErr    *gateway.HTTPError
		timeoutErr *gateway.TimeoutError
		netErr     *gateway.NetworkError
		regErr     *session.RegistrationError
	)

	switch {
	case errors.As(err, &customErr):
		return customErr
	case errors.Is(err, session.ErrInvalidCredentials):
		return errs.NewError(errs.ErrInvalidCredentials)
	case errors.As(err, &regErr):
		return errs.NewError(errs.ErrRegistrationFailed, regErr.Detail).WithStatus(regErr.Status)
	case errors.As(err, &timeoutErr):
		return errs.NewError(errs.ErrUpstreamTimeout)
	case errors.As(err, &httpErr):
		return errs.NewError(errs.ErrUpstreamRejected, httpErr.Detail()).WithStatus(httpErr.Status)
	case errors.As(err, &netErr):
		return errs.NewError(errs.ErrUpstreamUnavailable)
	default:
		return prefsync.AsCustomError(err)
	}
}

func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	resp.RespondError(w, r, toCustomError(err))
}
