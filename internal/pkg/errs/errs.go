/*
Package errs provides custom error types and application-level error code constants.

This file defines CustomError, which implements the error interface and carries a business
code, a user-facing message, and the HTTP status for unified error reporting.
*/
package errs

import (
	"fmt"
	"net/http"
	"strings"

	"vibecheck/internal/pkg/logx"
)

// CustomError is the error structure returned to the browser.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-friendly error description.
	Message string

	// Status is the HTTP status code used for the response.
	Status int
}

// Error implements the error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// WithStatus returns a copy of the error answered with a different HTTP status.
func (e *CustomError) WithStatus(status int) *CustomError {
	cp := *e
	cp.Status = status
	return &cp
}

// NewError builds a *CustomError from a registered code.
// details are printf arguments for templates containing a verb. An unknown code yields ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &CustomError{
			Code:    unknownErr.Code,
			Message: unknownErr.Message,
			Status:  unknownErr.Status,
		}
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if code == ErrUnknown && len(details) > 0 {
		if originalErr, ok := details[0].(error); ok {
			logx.Error(originalErr, "Handling ErrUnknown with underlying error")
		}
		return &customErr
	}

	if strings.Contains(customErr.Message, "%") {
		if len(details) == 0 {
			logx.Warn("Error template expects details but none were provided", "code", code)
			customErr.Message = errorMap[ErrUnknown].Message
		} else {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		}
	} else if len(details) > 0 {
		logx.Warn("Details provided for error, but message template has no formatting placeholders. Details ignored.", "code", code)
	}

	return &customErr
}
