/*
Package guard gates the administrative area in two layers.

The edge layer runs before a protected page is delivered and only asks whether a plausible token
is present. The render layer runs once the session has resolved and requires the ADMIN role.
Neither layer answers with an error: denial is always a redirect to a safe default.
*/
package guard

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"vibecheck/internal/app/session"
	"vibecheck/internal/app/user"
	"vibecheck/internal/pkg/auth/jwt"
	"vibecheck/internal/pkg/logx"
)

// Outcome is the result of one guard check.
type Outcome int

const (
	Allow Outcome = iota
	Redirect
	Pending
)

// Decision is an Outcome plus the redirect target when Outcome is Redirect.
type Decision struct {
	Outcome  Outcome
	Location string
}

// DefaultRenderWait bounds how long the render layer waits for session resolution before
// answering with the placeholder.
const DefaultRenderWait = 2 * time.Second

var placeholder = template.Must(template.New("verifying").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>VibeCheck</title></head>
<body><p role="status">{{.}}</p></body>
</html>
`))

// EdgeCheck allows the request through when a decodable, unexpired token is present.
// It performs no role check.
func EdgeCheck(token string, present bool) Decision {
	if !present || token == "" {
		return Decision{Outcome: Redirect, Location: session.PathLogin}
	}
	if _, err := jwt.Decode(token); err != nil {
		return Decision{Outcome: Redirect, Location: session.PathLogin}
	}
	return Decision{Outcome: Allow}
}

// RenderCheck decides from a session state: Unknown waits, Anonymous goes to login, anyone
// who cannot access the admin area goes to the profile.
func RenderCheck(state session.State) Decision {
	switch {
	case state.Loading():
		return Decision{Outcome: Pending}
	case !state.Authenticated():
		return Decision{Outcome: Redirect, Location: session.PathLogin}
	case !user.CanAccessAdmin(state.Identity):
		return Decision{Outcome: Redirect, Location: session.PathProfile}
	default:
		return Decision{Outcome: Allow}
	}
}

// Edge is the edge-layer middleware. It reads the session cookie directly.
func Edge(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		cookie, err := r.Cookie(session.CookieName)
		if err == nil {
			token = cookie.Value
		}

		decision := EdgeCheck(token, err == nil)
		if decision.Outcome != Allow {
			logx.Info("Edge guard redirect", "path", r.URL.Path, "location", decision.Location)
			http.Redirect(w, r, decision.Location, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Render is the render-layer middleware. It expects session.Service.Middleware upstream and
// waits up to wait for the session to resolve.
func Render(wait time.Duration) func(http.Handler) http.Handler {
	if wait <= 0 {
		wait = DefaultRenderWait
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := session.State{}
			if store := session.FromContext(r.Context()); store != nil {
				ctx, cancel := context.WithTimeout(r.Context(), wait)
				state, _ = store.Await(ctx)
				cancel()
			}

			decision := RenderCheck(state)
			switch decision.Outcome {
			case Allow:
				next.ServeHTTP(w, r)
			case Pending:
				writePlaceholder(w)
			default:
				logx.Info("Render guard redirect", "path", r.URL.Path, "location", decision.Location)
				http.Redirect(w, r, decision.Location, http.StatusSeeOther)
			}
		})
	}
}

func writePlaceholder(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Refresh", "1")
	w.WriteHeader(http.StatusOK)

	if err := placeholder.Execute(w, "Verifying access…"); err != nil {
		logx.Warn("Failed to render guard placeholder", "error", err.Error())
	}
}
