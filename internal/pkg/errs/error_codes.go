/*
Package errs provides custom error types and application-level error code constants.

These codes identify business and system errors both inside the web gateway and in the
JSON envelope returned to the browser.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 3xxx: Session and Identity Errors
const (
	// ErrInvalidCredentials indicates that the identity service rejected the login attempt.
	ErrInvalidCredentials = 3001

	// ErrRegistrationFailed carries the identity service's rejection message verbatim.
	ErrRegistrationFailed = 3002

	// ErrUnauthorized indicates that the request needs an authenticated session.
	ErrUnauthorized = 3003
)

// 4xxx: Upstream API Errors
const (
	// ErrUpstreamUnavailable indicates that no response was received from the VibeCheck API.
	ErrUpstreamUnavailable = 4001

	// ErrUpstreamTimeout indicates that the gateway deadline elapsed before the API answered.
	ErrUpstreamTimeout = 4002

	// ErrUpstreamRejected indicates that the API answered with a non-2xx status.
	ErrUpstreamRejected = 4003
)

// 6xxx: Preference Errors
const (
	// ErrPreferencesNotLoaded indicates that edits arrived before the remote preferences were fetched.
	ErrPreferencesNotLoaded = 6001

	// ErrPreferenceOutOfRange indicates a slider value outside 0..100.
	ErrPreferenceOutOfRange = 6002

	// ErrPreferenceUnknownField indicates an edit addressed a field that does not exist.
	ErrPreferenceUnknownField = 6003
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
