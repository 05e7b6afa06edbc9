/*
Package handler provides HTTP handler functions that forward place analysis and admin calls to
the VibeCheck API through the gateway, authenticated with the caller's session.
*/
package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"vibecheck/internal/app/gateway"
	"vibecheck/internal/app/session"
	"vibecheck/internal/pkg/errs"
	"vibecheck/internal/pkg/req"
	"vibecheck/internal/pkg/resp"
)

// Place analysis endpoints exposed under /api/place.
var placeEndpoints = map[string]struct{}{
	"analyze":     {},
	"compare":     {},
	"pro_analyze": {},
}

// forward sends one call with the session's bearer and answers with the API payload.
func forward(w http.ResponseWriter, r *http.Request, method, path string, body json.RawMessage) {
	store := session.FromContext(r.Context())

	d := &gateway.Request{
		Method: method,
		URL:    path,
		Header: http.Header{"Accept": {"application/json"}},
	}
	if len(body) > 0 {
		d.Header.Set("Content-Type", "application/json")
		d.Body = body
	}

	res, err := store.Client().Send(r.Context(), d)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	resp.RespondUpstream(w, r, res.Body)
}

// HandlePlace forwards POST /api/place/{endpoint}.
func HandlePlace(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpoint := chi.URLParam(r, "endpoint")
		if _, ok := placeEndpoints[endpoint]; !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams).WithStatus(http.StatusNotFound))
			return
		}

		body, customErr := req.ReadRawJSON(w, r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		forward(w, r, http.MethodPost, "/place/"+endpoint, body)
	}
}

// HandleAdminDashboard renders the admin landing page.
func HandleAdminDashboard(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, "admin", session.FromContext(r.Context()).State().Identity)
	}
}

// HandleAdminForward forwards an admin service call to a fixed API path. A "{id}" segment in
// path is filled from the route parameter of the same name.
func HandleAdminForward(method, path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := path
		if strings.Contains(target, "{id}") {
			id := chi.URLParam(r, "id")
			if id == "" {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			target = strings.Replace(target, "{id}", url.PathEscape(id), 1)
		}
		if q := r.URL.RawQuery; q != "" && method == http.MethodGet {
			target += "?" + q
		}

		var body json.RawMessage
		if method == http.MethodPost || method == http.MethodPut {
			var customErr *errs.CustomError
			if body, customErr = req.ReadRawJSON(w, r); customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
		}

		forward(w, r, method, target, body)
	}
}
