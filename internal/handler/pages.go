package handler

import (
	"html/template"
	"net/http"

	"vibecheck/internal/pkg/logx"
)

var pages = template.Must(template.New("pages").Parse(`
{{define "head"}}<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.}} · VibeCheck</title></head>
<body>{{end}}

{{define "foot"}}</body>
</html>
{{end}}

{{define "login"}}{{template "head" "Sign in"}}
<main>
  <h1>Sign in</h1>
  <form id="login" data-endpoint="/auth/login">
    <label>Email <input type="email" name="email" required></label>
    <label>Password <input type="password" name="password" required></label>
    <button type="submit">Sign in</button>
  </form>
</main>
{{template "foot"}}{{end}}

{{define "profile"}}{{template "head" "Profile"}}
<main>
  <h1>{{.DisplayName}}</h1>
  <p>{{.Email}}</p>
  {{if .CanAccessAdmin}}<p><a href="/admin">Admin dashboard</a></p>{{end}}
  <form method="post" action="/auth/logout"><button type="submit">Sign out</button></form>
</main>
{{template "foot"}}{{end}}

{{define "admin"}}{{template "head" "Admin"}}
<main>
  <h1>Admin dashboard</h1>
  <p>Signed in as {{.Email}}</p>
  <nav>
    <a href="/admin/api/stats">Stats</a>
    <a href="/admin/api/users">Users</a>
    <a href="/admin/api/logs">Logs</a>
    <a href="/admin/api/analyses">Analyses</a>
  </nav>
</main>
{{template "foot"}}{{end}}
`))

type profileView struct {
	DisplayName    string
	Email          string
	CanAccessAdmin bool
}

func renderPage(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		logx.Error(err, "Failed to render page", "page", name)
	}
}
