/*
Package req provides helper functions for HTTP request parsing and data binding.

Bodies are size-limited and decoded strictly so that malformed browser payloads are reported
with a business error code before any upstream call is made.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"vibecheck/internal/pkg/errs"
)

// MaxJSONBodySize bounds the JSON body accepted from the browser (1 MB).
const MaxJSONBodySize int64 = 1 << 20

// BindJSON decodes the JSON request body into dst, rejecting unknown fields and trailing data.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// ReadRawJSON reads a size-limited JSON body without decoding it, for bodies forwarded upstream.
func ReadRawJSON(w http.ResponseWriter, r *http.Request) (json.RawMessage, *errs.CustomError) {
	if r.ContentLength == 0 {
		return json.RawMessage("{}"), nil
	}

	var raw json.RawMessage
	if customErr := BindJSON(w, r, &raw); customErr != nil {
		return nil, customErr
	}

	return raw, nil
}
