/*
Package resp provides helper functions for constructing and sending standardized HTTP JSON responses.

Every JSON answer of the web gateway uses the same envelope: a business code, a message, the
request id assigned by the router, and optional data. Payloads relayed from the VibeCheck API
are validated and embedded verbatim.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"vibecheck/internal/pkg/errs"
	"vibecheck/internal/pkg/logx"
)

const unreadableUpstream = "The VibeCheck service returned an unreadable answer."

// Envelope is the standardized body returned to the browser.
type Envelope struct {
	// Code is the business status code (0 for success, see errs package otherwise).
	Code int `json:"code"`

	Message string `json:"message"`

	// RequestID lets support match a browser report to the gateway log line.
	RequestID string `json:"request_id,omitempty"`

	Data any `json:"data,omitempty"`
}

func envelope(r *http.Request, code int, message string, data any) Envelope {
	e := Envelope{Code: code, Message: message, Data: data}
	if r != nil {
		e.RequestID = middleware.GetReqID(r.Context())
	}
	return e
}

// write encodes payload with httpStatus and the no-sniff JSON headers.
func write(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logx.Error(err, "Error encoding JSON response", "http_status", httpStatus)
		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(httpStatus)

	if _, err := w.Write(body); err != nil {
		logx.Warn("Failed to write JSON response", "error", err.Error())
	}
}

// RespondSuccess sends data in a success envelope with HTTP 200.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	write(w, r, http.StatusOK, envelope(r, 0, "success", data))
}

// RespondUpstream relays an API payload in a success envelope. An empty body yields no data;
// a body that is not JSON is answered as an upstream rejection.
func RespondUpstream(w http.ResponseWriter, r *http.Request, body []byte) {
	if len(body) == 0 {
		RespondSuccess(w, r, nil)
		return
	}
	if !json.Valid(body) {
		logx.Warn("Upstream answered with invalid JSON", "bytes", len(body))
		RespondError(w, r, errs.NewError(errs.ErrUpstreamRejected, unreadableUpstream))
		return
	}
	RespondSuccess(w, r, json.RawMessage(body))
}

// RespondError sends customErr in an error envelope with its HTTP status. Upstream and server
// failures are logged with the request id.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	e := envelope(r, customErr.Code, customErr.Message, nil)
	if customErr.Status >= http.StatusInternalServerError {
		logx.Warn("Request failed", "code", customErr.Code, "http_status", customErr.Status, "request_id", e.RequestID)
	}
	write(w, r, customErr.Status, e)
}
