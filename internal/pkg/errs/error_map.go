/*
Package errs provides custom error types and application-level error code constants.

This file maps every error code to its CustomError template used for HTTP responses.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 3xxx: Session and Identity Errors
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Incorrect email or password.", Status: http.StatusUnauthorized},
	ErrRegistrationFailed: {Code: ErrRegistrationFailed, Message: "%s", Status: http.StatusBadRequest},
	ErrUnauthorized:       {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},

	// 4xxx: Upstream API Errors
	ErrUpstreamUnavailable: {Code: ErrUpstreamUnavailable, Message: "The VibeCheck service is unreachable. Please try again.", Status: http.StatusBadGateway},
	ErrUpstreamTimeout:     {Code: ErrUpstreamTimeout, Message: "The VibeCheck service took too long to answer.", Status: http.StatusGatewayTimeout},
	ErrUpstreamRejected:    {Code: ErrUpstreamRejected, Message: "%s", Status: http.StatusBadGateway},

	// 6xxx: Preference Errors
	ErrPreferencesNotLoaded:   {Code: ErrPreferencesNotLoaded, Message: "Preferences are still loading.", Status: http.StatusConflict},
	ErrPreferenceOutOfRange:   {Code: ErrPreferenceOutOfRange, Message: "Preference values must be between 0 and 100.", Status: http.StatusBadRequest},
	ErrPreferenceUnknownField: {Code: ErrPreferenceUnknownField, Message: "Unknown preference %s.", Status: http.StatusBadRequest},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
