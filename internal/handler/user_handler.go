/*
Package handler provides HTTP handler functions for the signed-in user's own pages and UI choices.
*/
package handler

import (
	"errors"
	"net/http"
	"strings"

	"vibecheck/internal/app/session"
	"vibecheck/internal/app/storage"
	"vibecheck/internal/pkg/errs"
	"vibecheck/internal/pkg/logx"
	"vibecheck/internal/pkg/req"
	"vibecheck/internal/pkg/resp"
)

const maxNavigatorLen = 32

type NavigatorInput struct {
	Navigator string `json:"navigator"`
}

// HandleProfile renders the profile page. Anonymous visitors are sent to the login page.
func HandleProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := session.FromContext(r.Context())
		state := store.State()

		if !state.Authenticated() {
			http.Redirect(w, r, session.PathLogin, http.StatusSeeOther)
			return
		}

		renderPage(w, "profile", profileView{
			DisplayName:    state.Identity.DisplayName(),
			Email:          state.Identity.Email,
			CanAccessAdmin: store.CanAccessAdmin(),
		})
	}
}

// HandleGetNavigator returns the stored map navigator choice, empty when none was saved.
func HandleGetNavigator(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, ok := requireSubject(w, r)
		if !ok {
			return
		}

		value, err := deps.Storage.Get(r.Context(), subject, storage.KeyNavigatorPreference)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			logx.Error(err, "failed to read navigator preference", "subject", subject)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, NavigatorInput{Navigator: string(value)})
	}
}

// HandlePutNavigator stores the map navigator choice.
func HandlePutNavigator(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, ok := requireSubject(w, r)
		if !ok {
			return
		}

		var input NavigatorInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		input.Navigator = strings.TrimSpace(input.Navigator)
		if input.Navigator == "" || len(input.Navigator) > maxNavigatorLen {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.Storage.Set(r.Context(), subject, storage.KeyNavigatorPreference, []byte(input.Navigator)); err != nil {
			logx.Error(err, "failed to store navigator preference", "subject", subject)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, input)
	}
}

// requireSubject answers 401 unless the session is authenticated.
func requireSubject(w http.ResponseWriter, r *http.Request) (string, bool) {
	store := session.FromContext(r.Context())
	if store == nil || !store.State().Authenticated() || store.Subject() == "" {
		resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
		return "", false
	}
	return store.Subject(), true
}
