/*
Package handler provides the HTTP handlers and routing setup for the VibeCheck web server.

This file defines the main Router, applying middleware for logging, CORS, sessions and
IP-based rate limiting before delegating requests to the page, API, admin and WebSocket handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"vibecheck/internal/app/guard"
	"vibecheck/internal/pkg/limiter"
	"vibecheck/internal/pkg/logx"
	"vibecheck/internal/pkg/resp"
)

const (
	AuthRate  = 0.2
	AuthBurst = 5
	WSRate    = 0.5
	WSBurst   = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	authLimiter := limiter.NewIPRateLimiter(rate.Limit(AuthRate), AuthBurst)
	wsLimiter := limiter.NewIPRateLimiter(rate.Limit(WSRate), WSBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "VibeCheck Web",
		}
		resp.RespondSuccess(w, r, data)
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(app chi.Router) {
		app.Use(deps.Sessions.Middleware)

		app.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/profile", http.StatusSeeOther)
		})
		app.Get("/login", HandleLoginPage(deps))
		app.Get("/profile", HandleProfile(deps))

		app.Route("/auth", func(auth chi.Router) {
			auth.With(authLimiter.Middleware).Post("/login", HandleLogin(deps))
			auth.With(authLimiter.Middleware).Post("/register", HandleRegister(deps))
			auth.Post("/logout", HandleLogout(deps))
			auth.Get("/session", HandleSession(deps))
		})

		app.Route("/api", func(api chi.Router) {
			api.Post("/place/{endpoint}", HandlePlace(deps))

			api.Get("/preferences", HandleGetPreferences(deps))
			api.Patch("/preferences", HandlePatchPreferences(deps))
			api.Post("/preferences/flush", HandleFlushPreferences(deps))

			api.Get("/ui/navigator", HandleGetNavigator(deps))
			api.Put("/ui/navigator", HandlePutNavigator(deps))
		})

		app.Get("/ws/preferences", HandleWebSocket(wsUpgrader, wsLimiter, deps))
	})

	// The edge check runs before any session work; the render check needs the session.
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(guard.Edge)
		admin.Use(deps.Sessions.Middleware)
		admin.Use(guard.Render(guard.DefaultRenderWait))

		admin.Get("/", HandleAdminDashboard(deps))

		admin.Route("/api", func(api chi.Router) {
			api.Get("/stats", HandleAdminForward(http.MethodGet, "/admin/stats"))
			api.Get("/users", HandleAdminForward(http.MethodGet, "/admin/users"))
			api.Put("/users/{id}/role", HandleAdminForward(http.MethodPut, "/admin/users/{id}/role"))
			api.Get("/logs", HandleAdminForward(http.MethodGet, "/admin/logs"))
			api.Delete("/logs", HandleAdminForward(http.MethodDelete, "/admin/logs"))
			api.Post("/sql", HandleAdminForward(http.MethodPost, "/admin/sql"))
			api.Get("/analyses", HandleAdminForward(http.MethodGet, "/admin/analyses"))
			api.Delete("/analyses/{id}", HandleAdminForward(http.MethodDelete, "/admin/analyses/{id}"))
		})
	})

	return r
}
