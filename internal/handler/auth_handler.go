/*
Package handler provides HTTP handler functions for signing in, registering, signing out, and
reading the current session.
*/
package handler

import (
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"vibecheck/internal/app/session"
	"vibecheck/internal/app/user"
	"vibecheck/internal/pkg/errs"
	"vibecheck/internal/pkg/logx"
	"vibecheck/internal/pkg/req"
	"vibecheck/internal/pkg/resp"
)

const maxPasswordLen = 128

type authResult struct {
	Redirect string         `json:"redirect"`
	User     *user.Identity `json:"user,omitempty"`
}

type sessionView struct {
	Status         session.Status `json:"status"`
	User           *user.Identity `json:"user"`
	CanAccessAdmin bool           `json:"canAccessAdmin"`
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func validPassword(password string) bool {
	n := utf8.RuneCountInString(password)
	return n > 0 && n <= maxPasswordLen
}

// HandleLogin exchanges email and password for a session cookie.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input session.Credentials
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		input.Email = strings.TrimSpace(input.Email)
		if !validEmail(input.Email) || !validPassword(input.Password) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		store := session.FromContext(r.Context())

		redirect, err := store.Login(r.Context(), input)
		if err != nil {
			logx.Warn("login failed", "email", input.Email, "error", err.Error())
			respondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, authResult{Redirect: redirect, User: store.State().Identity})
	}
}

// HandleRegister creates an account and signs it in.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input session.Registration
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		input.Email = strings.TrimSpace(input.Email)
		input.FirstName = strings.TrimSpace(input.FirstName)
		input.LastName = strings.TrimSpace(input.LastName)

		if input.FirstName == "" || !validEmail(input.Email) || !validPassword(input.Password) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		store := session.FromContext(r.Context())

		redirect, err := store.Register(r.Context(), input)
		if err != nil {
			logx.Warn("registration failed", "email", input.Email, "error", err.Error())
			respondErr(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, authResult{Redirect: redirect, User: store.State().Identity})
	}
}

// HandleLogout clears the session. It always succeeds.
func HandleLogout(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirect := session.FromContext(r.Context()).Logout(r.Context())
		resp.RespondSuccess(w, r, authResult{Redirect: redirect})
	}
}

// HandleSession reports the resolved session state.
func HandleSession(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := session.FromContext(r.Context())
		state := store.State()

		resp.RespondSuccess(w, r, sessionView{
			Status:         state.Status,
			User:           state.Identity,
			CanAccessAdmin: store.CanAccessAdmin(),
		})
	}
}

// HandleLoginPage renders the sign-in form, or sends an authenticated visitor to their area.
func HandleLoginPage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := session.FromContext(r.Context()).State()
		if state.Authenticated() {
			http.Redirect(w, r, session.DestinationFor(state.Identity), http.StatusSeeOther)
			return
		}

		renderPage(w, "login", nil)
	}
}
