/*
Package handler provides the HTTP handler function for the live preference channel.

HandleWebSocket rate limits the caller, requires a signed-in session, loads the caller's
synchronizer, upgrades the connection, and runs the client pumps until the peer leaves.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"vibecheck/internal/app/prefsync"
	"vibecheck/internal/app/session"
	"vibecheck/internal/pkg/errs"
	"vibecheck/internal/pkg/limiter"
	"vibecheck/internal/pkg/logx"
	"vibecheck/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process live preference connections.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rateLimiter.Allow(r) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", limiter.ClientIP(r))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		s, release, ok := acquireSynchronizer(deps, w, r)
		if !ok {
			return
		}
		defer release()

		subject := session.FromContext(r.Context()).Subject()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := prefsync.NewClient(conn, s, subject)

		go client.WritePump()

		logx.Info("Preference channel established", "subject", subject)

		client.ReadPump()
	}
}
